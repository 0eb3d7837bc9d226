package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/aggx/internal/formatter"
	"github.com/desertthunder/aggx/internal/listing"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/urfave/cli/v3"
)

// List prints one page of a family. Pass the printed cursor back with --cursor for the next page.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("family")
	if name == "" {
		return fmt.Errorf("%w: family (videos, articles, posts or reading)", shared.ErrMissingArgument)
	}
	family, err := models.ParseFamily(name)
	if err != nil {
		return err
	}

	a, err := r.components()
	if err != nil {
		return err
	}

	filters := listing.Filters{
		Section:    cmd.String("section"),
		Difficulty: cmd.String("difficulty"),
		Platform:   cmd.String("platform"),
	}
	r.logger.Debug("listing", "family", family, "filters", filters, "limit", cmd.Int("limit"))

	page, err := a.listing.List(ctx, family, filters, cmd.String("cursor"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.Page(page, r.palette))
}
