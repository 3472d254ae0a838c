package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	// EnvAPIKey names the environment variable holding the model API key.
	EnvAPIKey = "GEMINI_API_KEY"
)

// Config holds application configuration
type Config struct {
	Model      string `toml:"model"`
	DBPath     string `toml:"db_path"`
	Debug      bool   `toml:"debug"`
	Serve      bool   `toml:"serve"`
	ListenAddr string `toml:"listen_addr"`

	// RequestTimeoutSeconds bounds each round trip to the model service.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`

	// MaxToolIterations bounds the tool-execution loop within one turn.
	MaxToolIterations int `toml:"max_tool_iterations"`

	// SearchCacheTTLSeconds controls memoization of event searches (0 disables).
	SearchCacheTTLSeconds int `toml:"search_cache_ttl_seconds"`

	// APIKey is read from the environment, never from a config file.
	APIKey string `toml:"-"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Model:                 DefaultModel,
		DBPath:                "guide.db",
		ListenAddr:            ":8080",
		RequestTimeoutSeconds: 60,
		MaxToolIterations:     8,
		SearchCacheTTLSeconds: 30,
	}
}

// LoadFile overlays values from a TOML file onto cfg.
func LoadFile(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// FromEnv fills in the secrets that only live in the process environment.
func (c *Config) FromEnv() {
	c.APIKey = os.Getenv(EnvAPIKey)
}

// RequestTimeout returns the per-request timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SearchCacheTTL returns the event search cache TTL as a duration.
func (c Config) SearchCacheTTL() time.Duration {
	return time.Duration(c.SearchCacheTTLSeconds) * time.Second
}
