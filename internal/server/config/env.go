package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

// parseEnv loads envFile (if it exists) into the process environment without
// overriding variables that are already set, then copies recognised
// variables into config.
//
//	HTTP_ADDRESS, GRPC_ADDRESS, DATABASE_DSN (or DATABASE_URL), JWT_SECRET,
//	JWT_ISSUER, JWT_EXPIRATION (Go duration), JWT_REFRESH_EXPIRATION_DAYS,
//	BCRYPT_COST, CORS_ALLOWED_ORIGINS (comma separated), LOG_LEVEL,
//	LOG_FORMAT, S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION,
//	S3_BASE_ENDPOINT, HEALTH_CHECK_INTERVAL, AUTH_RATE_LIMIT
func parseEnv(config *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	str := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDRESS", &config.HTTPAddress)
	str("GRPC_ADDRESS", &config.GRPCAddress)
	str("DATABASE_URL", &config.DatabaseDSN)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("JWT_SECRET", &config.SecretKey)
	str("JWT_ISSUER", &config.JWTIssuer)
	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_FORMAT", &config.LogFormat)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	if v, ok := lookupEnv("JWT_EXPIRATION"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_EXPIRATION: %w", err)
		}
		config.AccessTokenValidityDuration = d
	}

	if v, ok := lookupEnv("JWT_REFRESH_EXPIRATION_DAYS"); ok && v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JWT_REFRESH_EXPIRATION_DAYS: %w", err)
		}
		config.RefreshTokenValidityDuration = time.Duration(days) * 24 * time.Hour
	}

	if v, ok := lookupEnv("BCRYPT_COST"); ok && v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BCRYPT_COST: %w", err)
		}
		config.BcryptCost = cost
	}

	if v, ok := lookupEnv("AUTH_RATE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUTH_RATE_LIMIT: %w", err)
		}
		config.AuthRateLimit = n
	}

	if v, ok := lookupEnv("HEALTH_CHECK_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HEALTH_CHECK_INTERVAL: %w", err)
		}
		config.HealthCheckInterval = d
	}

	if v, ok := lookupEnv("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		config.CORSAllowedOrigins = splitList(v)
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
