package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/aggx/internal/formatter"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/urfave/cli/v3"
)

// ReadingImport upserts the rows of a reading list CSV.
func (r *Runner) ReadingImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: csv path", shared.ErrMissingArgument)
	}

	a, err := r.components()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	defer f.Close()

	n, err := a.reading.ImportCSV(ctx, f)
	if err != nil {
		return err
	}
	r.logger.Info("reading list imported", "path", path, "materials", n)
	return r.writePlain("%s imported %d reading materials from %s\n", r.palette.OK("✓"), n, path)
}

// ReadingSeed adds the starter reading list.
func (r *Runner) ReadingSeed(ctx context.Context, cmd *cli.Command) error {
	a, err := r.components()
	if err != nil {
		return err
	}

	n, err := a.reading.SeedClassics(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("%s seeded %d reading materials\n", r.palette.OK("✓"), n)
}

// ReadingExport writes the reading list to a file, or to stdout when --output is "-".
func (r *Runner) ReadingExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	output := cmd.String("output")

	a, err := r.components()
	if err != nil {
		return err
	}

	materials, err := a.reading.List(ctx, map[string]any{
		"section":    cmd.String("section"),
		"difficulty": cmd.String("difficulty"),
	})
	if err != nil {
		return err
	}

	if output == "-" {
		data, err := formatter.ExportReading(materials, format)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	path, err := formatter.WriteReadingExport(materials, format, output)
	if err != nil {
		return err
	}
	r.logger.Info("reading list exported", "path", path, "materials", len(materials))
	return r.writePlain("%s exported %d reading materials to %s\n", r.palette.OK("✓"), len(materials), path)
}
