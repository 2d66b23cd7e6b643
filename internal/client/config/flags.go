package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/pulse/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   base URL of the API server
//	-s string   token store: sqlite or cookie
//	-f string   sqlite database file
//	-t int      request timeout (seconds)
//	-l string   log level
//
// Unknown arguments are filtered out with flagx.FilterArgs first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-f", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API server")
	fs.StringVar(&cfg.Store, "s", cfg.Store, "token store (sqlite or cookie)")
	fs.StringVar(&cfg.DBFile, "f", cfg.DBFile, "sqlite database file")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
