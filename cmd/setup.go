package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/aggx/internal/shared"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, migrates the database and seeds sources.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) && r.configPath != "" {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if config, err := shared.LoadConfig(r.configPath); err != nil {
			r.logger.Warn("failed to load created config, using defaults", "error", err)
		} else {
			r.config = config
		}
	}

	r.logger.Info("initializing database", "driver", r.config.Database.Driver, "path", r.config.Database.Path)
	a, err := r.components()
	if err != nil {
		return err
	}

	r.writePlainHeader("Setup")
	r.writePlain("Database: %s (%s)\n", r.config.Database.Path, r.config.Database.Driver)

	if cmd.Bool("seed") {
		res, err := a.registry.Seed(ctx, r.config.Sources)
		if err != nil {
			return err
		}
		r.writePlain("Channels added: %d\n", res.Channels)
		r.writePlain("Feeds added: %d\n", res.Feeds)
		r.writePlain("Accounts added: %d\n", res.Accounts)
		r.writePlain("Reading materials imported: %d\n", res.Reading)
		for _, err := range res.Errors {
			r.writePlain("%s %v\n", r.palette.Warn("!"), err)
		}
	}

	if cmd.Bool("classics") {
		n, err := a.reading.SeedClassics(ctx)
		if err != nil {
			return err
		}
		r.writePlain("Starter reading list: %d materials\n", n)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// MigrateUp applies every pending migration.
func (r *Runner) MigrateUp(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.database(); err != nil {
		return err
	}
	r.writePlain("%s migrations applied\n", r.palette.OK("✓"))
	return nil
}

// MigrateDown rolls back the most recent migration.
func (r *Runner) MigrateDown(ctx context.Context, cmd *cli.Command) error {
	db, done, err := r.unmigrated()
	if err != nil {
		return err
	}
	defer done()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	r.writePlain("%s rolled back one migration\n", r.palette.OK("✓"))
	return nil
}

// MigrateStatus lists every migration and whether it has been applied.
func (r *Runner) MigrateStatus(ctx context.Context, cmd *cli.Command) error {
	db, done, err := r.unmigrated()
	if err != nil {
		return err
	}
	defer done()

	statuses, err := shared.Migrations(db)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(statuses, cmd.Bool("pretty"))
	}
	for _, s := range statuses {
		state := r.palette.Warn("pending")
		if s.Applied {
			state = r.palette.OK("applied")
		}
		r.writePlain("%04d  %-10s %s\n", s.Version, s.Name, state)
	}
	return nil
}

// unmigrated returns the runner's database, or opens one without applying migrations.
// The returned func closes a database opened here.
func (r *Runner) unmigrated() (*sqlx.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return db, func() { db.Close() }, nil
}
