package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/aggx/internal/formatter"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/desertthunder/aggx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync runs one pass over a family, every syncable family, or a single container.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("family")
	sourceID := cmd.String("source")
	useJSON := cmd.Bool("json")

	if n := cmd.Int("max-pages"); n > 0 {
		r.config.Sync.MaxPages = n
	}

	a, err := r.components()
	if err != nil {
		return err
	}

	syncers, err := selectSyncers(a, name)
	if err != nil {
		return err
	}

	var reports []*tasks.SyncReport
	if sourceID != "" {
		if len(syncers) != 1 {
			return fmt.Errorf("%w: --source needs a single family", shared.ErrInvalidArgument)
		}
		r.logger.Info("syncing source", "family", syncers[0].Family(), "id", sourceID)
		report, err := syncers[0].SyncSource(ctx, sourceID)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	} else {
		progressCh := make(chan tasks.ProgressUpdate, 50)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for update := range progressCh {
				if useJSON {
					continue
				}
				switch update.Phase {
				case tasks.ListSources:
					r.writePlain("%s\n", r.palette.Title(update.Message))
				case tasks.FetchPage:
					r.writePlain("   %s\n", r.palette.Help(update.Message))
				}
			}
		}()

		reports, err = tasks.SyncAll(ctx, progressCh, syncers...)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}
		if !useJSON {
			r.writePlain("\n")
		}
	}

	if useJSON {
		return r.writeJSON(reports, cmd.Bool("pretty"))
	}
	for _, report := range reports {
		r.writePlain("%s\n", formatter.Report(report, r.palette))
	}
	return nil
}

// selectSyncers resolves a family name, or "all", to its syncers.
func selectSyncers(a *app, name string) ([]tasks.FamilySyncer, error) {
	if name == "" || strings.EqualFold(name, "all") {
		syncers := make([]tasks.FamilySyncer, 0, len(a.syncers))
		for _, family := range models.SyncFamilies() {
			syncers = append(syncers, a.syncers[family])
		}
		return syncers, nil
	}

	family, err := models.ParseFamily(name)
	if err != nil {
		return nil, err
	}
	s, ok := a.syncers[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not synced from a provider", shared.ErrInvalidArgument, family)
	}
	return []tasks.FamilySyncer{s}, nil
}
