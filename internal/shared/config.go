package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
	Sync        SyncConfig        `toml:"sync"`
	Sources     SourcesConfig     `toml:"sources"`
}

// CredentialsConfig contains provider-specific credentials.
type CredentialsConfig struct {
	YouTube  YouTubeConfig  `toml:"youtube"`
	Mastodon MastodonConfig `toml:"mastodon"`
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// MastodonConfig contains the instance used to resolve mastodon accounts.
type MastodonConfig struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
}

// DatabaseConfig contains database connection settings.
//
// Path is a file path for the sqlite drivers and a connection string for postgres.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// SyncConfig contains ingestion settings shared by every family.
type SyncConfig struct {
	PageSize     int             `toml:"page_size"`
	PageDelay    time.Duration   `toml:"page_delay"`
	FetchTimeout time.Duration   `toml:"fetch_timeout"`
	Backoff      time.Duration   `toml:"backoff"`
	PostLimit    int             `toml:"post_limit"`
	MaxPages     int             `toml:"max_pages"`
	Workers      int             `toml:"workers"`
	QueueSize    int             `toml:"queue_size"`
	Intervals    IntervalsConfig `toml:"intervals"`
}

// IntervalsConfig holds the per-family sync cadence.
type IntervalsConfig struct {
	Videos   time.Duration `toml:"videos"`
	Articles time.Duration `toml:"articles"`
	Posts    time.Duration `toml:"posts"`
}

// SourcesConfig lists the containers seeded into storage at startup.
type SourcesConfig struct {
	Channels   []ChannelSource `toml:"channels"`
	Feeds      []FeedSource    `toml:"feeds"`
	Accounts   []AccountSource `toml:"accounts"`
	ReadingCSV string          `toml:"reading_csv"`
}

// ChannelSource is a YouTube channel entry. Title and UploadsPlaylistID are resolved
// through the API when left empty.
type ChannelSource struct {
	ID                string `toml:"id"`
	Section           string `toml:"section"`
	Title             string `toml:"title"`
	UploadsPlaylistID string `toml:"uploads_playlist_id"`
}

// FeedSource is an RSS/Atom feed entry.
type FeedSource struct {
	URL     string `toml:"url"`
	Title   string `toml:"title"`
	Section string `toml:"section"`
}

// AccountSource is a social account entry.
type AccountSource struct {
	Platform    string `toml:"platform"`
	Username    string `toml:"username"`
	DisplayName string `toml:"display_name"`
	ProfileURL  string `toml:"profile_url"`
	AvatarURL   string `toml:"avatar_url"`
	Section     string `toml:"section"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	config.Sources = SourcesConfig{}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks settings that would otherwise fail deep inside the sync loop.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}
	if c.Sync.PageSize < 1 || c.Sync.PageSize > 50 {
		return fmt.Errorf("%w: sync.page_size must be between 1 and 50, got %d", ErrInvalidConfig, c.Sync.PageSize)
	}
	if c.Sync.MaxPages < 0 {
		return fmt.Errorf("%w: sync.max_pages cannot be negative", ErrInvalidConfig)
	}
	if c.Sync.PageDelay < 0 || c.Sync.FetchTimeout <= 0 || c.Sync.Backoff <= 0 {
		return fmt.Errorf("%w: sync delays must be positive", ErrInvalidConfig)
	}
	for name, d := range map[string]time.Duration{
		"videos":   c.Sync.Intervals.Videos,
		"articles": c.Sync.Intervals.Articles,
		"posts":    c.Sync.Intervals.Posts,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: sync.intervals.%s must be positive", ErrInvalidConfig, name)
		}
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
