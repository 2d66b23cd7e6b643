package config

import (
	"fmt"
	"net/url"
	"time"
)

// Token store kinds accepted by -s.
const (
	StoreSQLite = "sqlite"
	StoreCookie = "cookie"
)

// Config holds runtime settings for the Pulse CLI.
type Config struct {
	// ServerURL is the base URL of the Pulse API, e.g. http://127.0.0.1:8080.
	ServerURL string
	// Store selects where tokens live: StoreSQLite persists them across
	// runs, StoreCookie keeps them in memory for one session.
	Store          string
	DBFile         string
	RequestTimeout time.Duration
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Store = StoreSQLite
	c.DBFile = "pulse_client.db"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "warn"
}

// Validate rejects settings the CLI cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url %q", c.ServerURL)
	}
	switch c.Store {
	case StoreSQLite:
		if c.DBFile == "" {
			return fmt.Errorf("sqlite store needs a database file")
		}
	case StoreCookie:
	default:
		return fmt.Errorf("unknown token store %q", c.Store)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. args exclude the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
