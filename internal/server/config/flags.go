package config

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/pulse/internal/flagx"
)

// parseFlags overlays command-line flags.
//
//	-a string        HTTP bind address (e.g. ":8080")
//	-grpc string     gRPC health bind address
//	-d string        PostgreSQL DSN
//	-s string        JWT HMAC secret
//	-t int           access token validity, minutes
//	-r int           refresh token validity, days
//	-l string        log level
//	-cors string     comma separated allowed origins
//	-u, -p string    S3 user and password
//	-b string        S3 bucket
//	-region string   S3 region
//	-e string        S3 base endpoint
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-a", "-grpc", "-d", "-s", "-t", "-r", "-l", "-cors", "-u", "-p", "-b", "-region", "-e",
	})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddress, "a", config.HTTPAddress, "HTTP address and port")
	fs.StringVar(&config.GRPCAddress, "grpc", config.GRPCAddress, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (minutes)")
	refreshDays := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()/24), "refresh token validity (days)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	cors := fs.String("cors", strings.Join(config.CORSAllowedOrigins, ","), "allowed CORS origins")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Integer flags round the durations, so only apply the ones given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshDays) * 24 * time.Hour
		case "cors":
			config.CORSAllowedOrigins = splitList(*cors)
		}
	})
	return nil
}
