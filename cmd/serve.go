package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/server"
	"github.com/desertthunder/aggx/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API until interrupted. Unless --no-sync is set, every family is also
// synced on its configured interval.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	a, err := r.components()
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := tasks.NewPool(r.config.Sync.Workers, r.config.Sync.QueueSize, r.logger)
	defer pool.Stop()

	var scheduler *tasks.Scheduler
	if !cmd.Bool("no-sync") {
		scheduler = tasks.NewScheduler(r.logger, r.jobs(a)...)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	srv := server.New(addr, server.Deps{
		Listing:   a.listing,
		Registry:  a.registry,
		Syncers:   a.syncers,
		Pool:      pool,
		Scheduler: scheduler,
		Logger:    r.logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// jobs schedules each syncable family on its configured interval.
func (r *Runner) jobs(a *app) []tasks.Job {
	intervals := map[models.Family]time.Duration{
		models.FamilyVideos:   r.config.Sync.Intervals.Videos,
		models.FamilyArticles: r.config.Sync.Intervals.Articles,
		models.FamilyPosts:    r.config.Sync.Intervals.Posts,
	}

	jobs := make([]tasks.Job, 0, len(intervals))
	for _, family := range models.SyncFamilies() {
		jobs = append(jobs, tasks.Job{
			Syncer:   a.syncers[family],
			Interval: intervals[family],
			Backoff:  r.config.Sync.Backoff,
		})
	}
	return jobs
}
