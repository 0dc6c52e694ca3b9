package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Jobs     JobsConfig     `toml:"jobs"`
	Feed     FeedConfig     `toml:"feed"`
	Download DownloadConfig `toml:"download"`
}

// APIConfig contains the generation backend endpoint and credentials.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	UserID  string `toml:"user_id"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// JobsConfig controls polling of in-flight generation jobs.
type JobsConfig struct {
	PollInterval string  `toml:"poll_interval"`
	StaleAfter   string  `toml:"stale_after"`
	RateLimit    float64 `toml:"rate_limit"` // status requests per second
}

// FeedConfig controls paging of the remote item store.
type FeedConfig struct {
	PageSize     int `toml:"page_size"`
	PrefetchRows int `toml:"prefetch_rows"` // rows from the end at which the sentinel counts as visible
}

// DownloadConfig controls bulk downloads of selected items.
type DownloadConfig struct {
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
	OutputDir string  `toml:"output_dir"`
}

// PollEvery parses [JobsConfig.PollInterval].
func (c JobsConfig) PollEvery() (time.Duration, error) {
	return parsePositiveDuration("jobs.poll_interval", c.PollInterval)
}

// StaleTimeout parses [JobsConfig.StaleAfter].
func (c JobsConfig) StaleTimeout() (time.Duration, error) {
	return parsePositiveDuration("jobs.stale_after", c.StaleAfter)
}

func parsePositiveDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, key)
	}
	return d, nil
}

// Validate checks that numeric settings are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if _, err := c.Jobs.PollEvery(); err != nil {
		return err
	}
	if _, err := c.Jobs.StaleTimeout(); err != nil {
		return err
	}
	if c.Jobs.RateLimit <= 0 {
		return fmt.Errorf("%w: jobs.rate_limit must be positive", ErrInvalidConfig)
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("%w: feed.page_size must be positive", ErrInvalidConfig)
	}
	if c.Feed.PrefetchRows < 0 {
		return fmt.Errorf("%w: feed.prefetch_rows must not be negative", ErrInvalidConfig)
	}
	if c.Download.Workers <= 0 || c.Download.RateLimit <= 0 {
		return fmt.Errorf("%w: download.workers and download.rate_limit must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
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

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
