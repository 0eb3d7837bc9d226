package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/urfave/cli/v3"
)

// AddChannel adds a YouTube channel.
func (r *Runner) AddChannel(ctx context.Context, cmd *cli.Command) error {
	a, err := r.components()
	if err != nil {
		return err
	}

	channel, created, err := a.registry.AddChannel(ctx, shared.ChannelSource{
		ID:                cmd.StringArg("id"),
		Section:           cmd.String("section"),
		Title:             cmd.String("title"),
		UploadsPlaylistID: cmd.String("playlist"),
	})
	if err != nil {
		return err
	}
	return r.added(cmd, "channel", channel.ID, channel.Title, channel, created)
}

// AddFeed adds an RSS or Atom feed.
func (r *Runner) AddFeed(ctx context.Context, cmd *cli.Command) error {
	a, err := r.components()
	if err != nil {
		return err
	}

	feed, created, err := a.registry.AddFeed(ctx, shared.FeedSource{
		URL:     cmd.StringArg("url"),
		Title:   cmd.String("title"),
		Section: cmd.String("section"),
	})
	if err != nil {
		return err
	}
	return r.added(cmd, "feed", feed.ID, feed.Title, feed, created)
}

// AddAccount adds a social account.
func (r *Runner) AddAccount(ctx context.Context, cmd *cli.Command) error {
	a, err := r.components()
	if err != nil {
		return err
	}

	account, created, err := a.registry.AddAccount(ctx, shared.AccountSource{
		Platform:    cmd.String("platform"),
		Username:    cmd.StringArg("username"),
		DisplayName: cmd.String("name"),
		ProfileURL:  cmd.String("url"),
		Section:     cmd.String("section"),
	})
	if err != nil {
		return err
	}
	return r.added(cmd, "account", account.ID, account.DisplayName, account, created)
}

func (r *Runner) added(cmd *cli.Command, kind, id, title string, source any, created bool) error {
	r.logger.Info("source added", "kind", kind, "id", id, "created", created)
	if cmd.Bool("json") {
		return r.writeJSON(source, false)
	}
	if !created {
		return r.writePlain("%s %s %s already exists (%s)\n", r.palette.Warn("-"), kind, id, title)
	}
	return r.writePlain("%s added %s %s (%s)\n", r.palette.OK("✓"), kind, id, title)
}

// Sources lists the containers of one family, or of all three.
func (r *Runner) Sources(ctx context.Context, cmd *cli.Command) error {
	a, err := r.components()
	if err != nil {
		return err
	}

	families := models.SyncFamilies()
	if name := cmd.StringArg("family"); name != "" && !strings.EqualFold(name, "all") {
		family, err := models.ParseFamily(name)
		if err != nil {
			return err
		}
		if !family.Syncable() {
			return fmt.Errorf("%w: %s has no sources", shared.ErrInvalidArgument, family)
		}
		families = []models.Family{family}
	}

	criteria := map[string]any{"section": cmd.String("section")}
	out := make(map[models.Family]any, len(families))
	for _, family := range families {
		switch family {
		case models.FamilyVideos:
			channels, err := a.channels.List(ctx, criteria)
			if err != nil {
				return err
			}
			out[family] = channels
		case models.FamilyArticles:
			feeds, err := a.feeds.List(ctx, criteria)
			if err != nil {
				return err
			}
			out[family] = feeds
		case models.FamilyPosts:
			accounts, err := a.accounts.List(ctx, criteria)
			if err != nil {
				return err
			}
			out[family] = accounts
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	for _, family := range families {
		r.writePlain("%s\n", r.palette.Title(family.String()))
		switch v := out[family].(type) {
		case []models.Channel:
			for _, c := range v {
				r.writePlain("  %s  %s  %s%s\n", c.ID, c.Title, r.palette.Help(c.Section), synced(c.LastSyncedAt))
			}
		case []models.Feed:
			for _, f := range v {
				r.writePlain("  %s  %s  %s%s\n", f.Title, f.URL, r.palette.Help(f.Section), synced(f.LastSyncedAt))
			}
		case []models.Account:
			for _, acct := range v {
				r.writePlain("  %s@%s  %s  %s%s\n", acct.Username, acct.Platform, acct.DisplayName, r.palette.Help(acct.Section), synced(acct.LastSyncedAt))
			}
		}
	}
	return nil
}

func synced(at *models.Timestamp) string {
	if at == nil {
		return "  never synced"
	}
	return "  synced " + at.String()
}
