package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/repositories"
	"github.com/desertthunder/aggx/internal/services"
	"github.com/desertthunder/aggx/internal/shared"
)

// ChannelResolver looks up a channel's title and uploads playlist. [services.YouTubeService] implements it.
type ChannelResolver interface {
	ChannelInfo(ctx context.Context, channelID string) (*services.YouTubeChannel, error)
}

// FeedProber reads a feed's metadata. [services.RSSService] implements it.
type FeedProber interface {
	Probe(ctx context.Context, url string) (*models.ContainerMeta, error)
}

// Registry adds containers, resolving missing metadata through the providers when it can.
type Registry struct {
	Channels *repositories.ChannelRepository
	Feeds    *repositories.FeedRepository
	Accounts *repositories.AccountRepository
	Reading  *repositories.ReadingRepository
	YouTube  ChannelResolver
	RSS      FeedProber
	Logger   *log.Logger
}

// SeedResult counts what [Registry.Seed] wrote.
type SeedResult struct {
	Channels int
	Feeds    int
	Accounts int
	Reading  int
	Errors   []error
}

// AddChannel creates a channel. A blank title or uploads playlist is resolved through the
// YouTube API; without credentials the channel is stored as-is and skipped at sync time.
func (r *Registry) AddChannel(ctx context.Context, src shared.ChannelSource) (*models.Channel, bool, error) {
	channel := models.Channel{
		ID:                strings.TrimSpace(src.ID),
		Title:             src.Title,
		Section:           src.Section,
		UploadsPlaylistID: src.UploadsPlaylistID,
	}
	if channel.ID == "" {
		return nil, false, fmt.Errorf("%w: channel id", shared.ErrMissingArgument)
	}

	if existing, err := r.Channels.Get(ctx, channel.ID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	if (channel.Title == "" || channel.UploadsPlaylistID == "") && r.YouTube != nil {
		info, err := r.YouTube.ChannelInfo(ctx, channel.ID)
		switch {
		case errors.Is(err, shared.ErrMissingConfig):
			r.logger().Warn("storing channel without resolving it", "id", channel.ID, "err", err)
		case err != nil:
			return nil, false, err
		default:
			if channel.Title == "" {
				channel.Title = info.Snippet.Title
			}
			if channel.UploadsPlaylistID == "" {
				channel.UploadsPlaylistID = info.ContentDetails.RelatedPlaylists.Uploads
			}
		}
	}
	return r.Channels.Create(ctx, channel)
}

// AddFeed creates a feed. A blank title is read from the feed itself.
func (r *Registry) AddFeed(ctx context.Context, src shared.FeedSource) (*models.Feed, bool, error) {
	feed := models.Feed{URL: strings.TrimSpace(src.URL), Title: strings.TrimSpace(src.Title), Section: src.Section}
	if feed.URL == "" {
		return nil, false, fmt.Errorf("%w: feed url", shared.ErrMissingArgument)
	}

	if existing, err := r.Feeds.GetByURL(ctx, feed.URL); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	if feed.Title == "" {
		if r.RSS == nil {
			return nil, false, fmt.Errorf("%w: feed title", shared.ErrMissingArgument)
		}
		meta, err := r.RSS.Probe(ctx, feed.URL)
		if err != nil {
			return nil, false, err
		}
		feed.Title = meta.Title
		feed.Description = meta.Description
	}
	return r.Feeds.Create(ctx, feed)
}

// AddAccount creates a social account.
func (r *Registry) AddAccount(ctx context.Context, src shared.AccountSource) (*models.Account, bool, error) {
	return r.Accounts.Create(ctx, models.Account{
		Platform:    src.Platform,
		Username:    src.Username,
		DisplayName: src.DisplayName,
		ProfileURL:  src.ProfileURL,
		AvatarURL:   src.AvatarURL,
		Section:     src.Section,
	})
}

// Seed adds every configured source. A source that fails is logged and collected; the rest
// are still added.
func (r *Registry) Seed(ctx context.Context, cfg shared.SourcesConfig) (*SeedResult, error) {
	res := &SeedResult{}
	record := func(kind, name string, created bool, err error, n *int) {
		switch {
		case err != nil:
			r.logger().Error("failed to seed source", "kind", kind, "source", name, "err", err)
			res.Errors = append(res.Errors, fmt.Errorf("%s %s: %w", kind, name, err))
		case created:
			*n++
		}
	}

	for _, c := range cfg.Channels {
		_, created, err := r.AddChannel(ctx, c)
		record("channel", c.ID, created, err, &res.Channels)
	}
	for _, f := range cfg.Feeds {
		_, created, err := r.AddFeed(ctx, f)
		record("feed", f.URL, created, err, &res.Feeds)
	}
	for _, a := range cfg.Accounts {
		_, created, err := r.AddAccount(ctx, a)
		record("account", a.Platform+"/"+a.Username, created, err, &res.Accounts)
	}

	if cfg.ReadingCSV != "" && r.Reading != nil {
		file, err := os.Open(cfg.ReadingCSV)
		if err != nil {
			return res, fmt.Errorf("%w: reading list: %v", shared.ErrInvalidConfig, err)
		}
		defer file.Close()

		n, err := r.Reading.ImportCSV(ctx, file)
		res.Reading = n
		record("reading", cfg.ReadingCSV, false, err, nil)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// logger never writes to r, which is shared by concurrent requests.
func (r *Registry) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}
