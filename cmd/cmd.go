// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"}
}

func sectionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "section",
		Aliases: []string{"s"},
		Usage:   "Section to file the source under, or to filter by",
	}
}

// setupCommand creates the config file and database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, run migrations and seed configured sources",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "seed",
				Usage: "Add the sources listed in the config file",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "classics",
				Usage: "Seed the starter reading list",
			},
		},
		Action: r.Setup,
	}
}

// migrateCommand applies or rolls back schema migrations
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Database schema migrations",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply pending migrations",
				Action: r.MigrateUp,
			},
			{
				Name:   "down",
				Usage:  "Roll back the most recent migration",
				Action: r.MigrateDown,
			},
			{
				Name:   "status",
				Usage:  "List migrations and whether each is applied",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.MigrateStatus,
			},
		},
	}
}

// serveCommand runs the HTTP API with the background scheduler
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API and sync every family on its interval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address (defaults to server.host:server.port)",
			},
			&cli.BoolFlag{
				Name:  "no-sync",
				Usage: "Serve stored content without starting the scheduler",
			},
		},
		Action: r.Serve,
	}
}

// syncCommand runs one ingestion pass
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync one family (videos, articles, posts) or all of them",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:  "family",
				Value: "all",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source",
				Usage: "Sync a single container of the family by id",
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Stop each container after this many pages (0 for no limit)",
			},
			jsonFlag(),
			prettyFlag(),
		},
		Action: r.Sync,
	}
}

// listCommand pages through stored items
func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List stored items of a family, newest first",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "family",
			},
		},
		Flags: []cli.Flag{
			sectionFlag(),
			&cli.StringFlag{
				Name:  "difficulty",
				Usage: "Filter reading materials by difficulty",
			},
			&cli.StringFlag{
				Name:  "platform",
				Usage: "Filter posts by platform",
			},
			&cli.StringFlag{
				Name:  "cursor",
				Usage: "Cursor returned by the previous page",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of items to return",
				Value:   10,
			},
			jsonFlag(),
			prettyFlag(),
		},
		Action: r.List,
	}
}

// addCommand registers containers
func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a channel, feed or account",
		Commands: []*cli.Command{
			{
				Name:  "channel",
				Usage: "Add a YouTube channel by id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					sectionFlag(),
					&cli.StringFlag{
						Name:  "title",
						Usage: "Channel title (resolved through the API when empty)",
					},
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Uploads playlist id (resolved through the API when empty)",
					},
					jsonFlag(),
				},
				Action: r.AddChannel,
			},
			{
				Name:  "feed",
				Usage: "Add an RSS or Atom feed by url",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "url",
					},
				},
				Flags: []cli.Flag{
					sectionFlag(),
					&cli.StringFlag{
						Name:  "title",
						Usage: "Feed title (read from the feed when empty)",
					},
					jsonFlag(),
				},
				Action: r.AddFeed,
			},
			{
				Name:  "account",
				Usage: "Add a social account",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "username",
					},
				},
				Flags: []cli.Flag{
					sectionFlag(),
					&cli.StringFlag{
						Name:    "platform",
						Aliases: []string{"p"},
						Usage:   "Platform the account lives on",
						Value:   "mastodon",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Profile url",
					},
					jsonFlag(),
				},
				Action: r.AddAccount,
			},
		},
	}
}

// sourcesCommand lists containers
func sourcesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "List the channels, feeds and accounts being synced",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:  "family",
				Value: "all",
			},
		},
		Flags: []cli.Flag{
			sectionFlag(),
			jsonFlag(),
			prettyFlag(),
		},
		Action: r.Sources,
	}
}

// readingCommand manages the reading list
func readingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reading",
		Usage: "Reading list operations",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import reading materials from a CSV file",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Action: r.ReadingImport,
			},
			{
				Name:   "seed",
				Usage:  "Add the starter reading list",
				Action: r.ReadingSeed,
			},
			{
				Name:  "export",
				Usage: "Export the reading list as csv, markdown, txt or json",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to reading_list.<format>, - for stdout)",
					},
					sectionFlag(),
					&cli.StringFlag{
						Name:  "difficulty",
						Usage: "Only export materials of this difficulty",
					},
				},
				Action: r.ReadingExport,
			},
		},
	}
}
