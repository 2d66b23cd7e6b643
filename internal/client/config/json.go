package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/pulse/internal/flagx"
	"github.com/dmitrijs2005/pulse/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. The timeout
// uses timex.Duration so it can be written as "10s" or integer nanoseconds.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	Store          string         `json:"store"`
	DBFile         string         `json:"db_file"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays cfg with values from the file named by -c/-config.
// Empty fields leave the current value in place.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.Store != "" {
		cfg.Store = jc.Store
	}
	if jc.DBFile != "" {
		cfg.DBFile = jc.DBFile
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	return nil
}
