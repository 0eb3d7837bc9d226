package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aggx/internal/formatter"
	"github.com/desertthunder/aggx/internal/listing"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/repositories"
	"github.com/desertthunder/aggx/internal/services"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/desertthunder/aggx/internal/tasks"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sqlx.DB
	ownsDB     bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	palette    *formatter.Palette
	app        *app
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB is opened from Config on first use when nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sqlx.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Palette    *formatter.Palette
}

// app is the storage, adapters and sync wiring shared by the commands.
type app struct {
	channels *repositories.ChannelRepository
	feeds    *repositories.FeedRepository
	accounts *repositories.AccountRepository
	reading  *repositories.ReadingRepository
	registry *tasks.Registry
	syncers  map[models.Family]tasks.FamilySyncer
	listing  *listing.Service
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Palette == nil {
		opts.Palette = formatter.DefaultPalette
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    opts.Palette,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, migrateCommand, serveCommand, syncCommand, listCommand, addCommand, sourcesCommand, readingCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database opens and migrates the configured database once per run.
func (r *Runner) database() (*sqlx.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	r.logger.Debug("opening database", "driver", r.config.Database.Driver, "path", r.config.Database.Path)
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db, r.ownsDB = db, true
	return db, nil
}

// components builds the repositories, adapters and syncers on first use.
func (r *Runner) components() (*app, error) {
	if r.app != nil {
		return r.app, nil
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}

	cfg := r.config
	youtube := services.NewYouTubeService(cfg.Credentials.YouTube.BaseURL, cfg.Credentials.YouTube.APIKey, cfg.Sync.PageSize, r.httpClient)
	rss := services.NewRSSService(r.httpClient)
	social := services.NewSocialService(cfg.Sync.PostLimit,
		services.NewMastodonProvider(cfg.Credentials.Mastodon.BaseURL, cfg.Credentials.Mastodon.AccessToken, r.httpClient),
	)

	a := &app{
		channels: repositories.NewChannelRepository(db),
		feeds:    repositories.NewFeedRepository(db),
		accounts: repositories.NewAccountRepository(db),
		reading:  repositories.NewReadingRepository(db),
		listing:  listing.NewService(db, r.logger),
	}
	a.registry = &tasks.Registry{
		Channels: a.channels,
		Feeds:    a.feeds,
		Accounts: a.accounts,
		Reading:  a.reading,
		YouTube:  youtube,
		RSS:      rss,
		Logger:   r.logger,
	}

	opts := tasks.SyncOptions{PageDelay: cfg.Sync.PageDelay, FetchTimeout: cfg.Sync.FetchTimeout, MaxPages: cfg.Sync.MaxPages}
	if opts.PageDelay == 0 {
		opts.PageDelay = tasks.NoPageDelay
	}
	a.syncers = map[models.Family]tasks.FamilySyncer{
		models.FamilyVideos:   tasks.NewSyncer(models.FamilyVideos, youtube, a.channels, repositories.NewVideoRepository(db), opts, r.logger),
		models.FamilyArticles: tasks.NewSyncer(models.FamilyArticles, rss, a.feeds, repositories.NewArticleRepository(db), opts, r.logger),
		models.FamilyPosts:    tasks.NewSyncer(models.FamilyPosts, social, a.accounts, repositories.NewPostRepository(db), opts, r.logger),
	}

	r.app = a
	return a, nil
}

// close releases the database opened by [Runner.database]. A database passed in
// [RunnerOpts] is left open.
func (r *Runner) close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db, r.ownsDB, r.app = nil, false, nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
