package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Driver != "sqlite3" {
			t.Errorf("expected database driver sqlite3, got %s", config.Database.Driver)
		}

		if config.Database.Path != "./aggx.db" {
			t.Errorf("expected database path ./aggx.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8000 {
			t.Errorf("expected server port 8000, got %d", config.Server.Port)
		}

		if config.Sync.PageSize != 10 {
			t.Errorf("expected page size 10, got %d", config.Sync.PageSize)
		}

		if config.Sync.PageDelay != time.Second {
			t.Errorf("expected page delay 1s, got %s", config.Sync.PageDelay)
		}

		if config.Sync.Intervals.Posts != 15*time.Minute {
			t.Errorf("expected posts interval 15m, got %s", config.Sync.Intervals.Posts)
		}

		if len(config.Sources.Feeds) != 1 || config.Sources.Feeds[0].URL != "https://www.marxists.org/rss.xml" {
			t.Errorf("expected the example feed, got %+v", config.Sources.Feeds)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("creating config file again should fail with ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
driver = "postgres"
path = "postgres://aggx@localhost/aggx?sslmode=disable"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[sync]
page_delay = "250ms"

[credentials.youtube]
api_key = "test_api_key"

[[sources.feeds]]
url = "https://example.com/feed.xml"
section = "news"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Driver != "postgres" {
			t.Errorf("expected database driver postgres, got %s", config.Database.Driver)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Sync.PageDelay != 250*time.Millisecond {
			t.Errorf("expected page delay 250ms, got %s", config.Sync.PageDelay)
		}

		if config.Sync.PageSize != 10 {
			t.Errorf("missing page size should keep default 10, got %d", config.Sync.PageSize)
		}

		if config.Credentials.YouTube.APIKey != "test_api_key" {
			t.Errorf("expected api key test_api_key, got %s", config.Credentials.YouTube.APIKey)
		}

		if len(config.Sources.Channels) != 0 {
			t.Errorf("example channels should not leak into a loaded config, got %d", len(config.Sources.Channels))
		}

		if len(config.Sources.Feeds) != 1 || config.Sources.Feeds[0].Section != "news" {
			t.Errorf("expected one news feed, got %+v", config.Sources.Feeds)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Config)
		}{
			{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
			{"empty path", func(c *Config) { c.Database.Path = "" }},
			{"page size too small", func(c *Config) { c.Sync.PageSize = 0 }},
			{"page size too large", func(c *Config) { c.Sync.PageSize = 51 }},
			{"zero fetch timeout", func(c *Config) { c.Sync.FetchTimeout = 0 }},
			{"zero interval", func(c *Config) { c.Sync.Intervals.Articles = 0 }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
