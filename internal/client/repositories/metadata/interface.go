// Package metadata stores small key/value records in the CLI's local sqlite
// database. Records may carry an expiry after which they read as absent.
package metadata

import (
	"context"
	"time"
)

type Repository interface {
	// Get returns nil, nil when key is missing or expired at now.
	Get(ctx context.Context, key string, now time.Time) ([]byte, error)
	// Set upserts key. A zero expiresAt never expires.
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Clear(ctx context.Context) error
}
