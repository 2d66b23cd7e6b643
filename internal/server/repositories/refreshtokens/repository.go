// Package refreshtokens stores the server side of refresh-token rotation.
// Only token digests are persisted and a user has at most one live row.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pulse/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a refresh token digest for userID.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// FindByUser returns the user's stored token or common.ErrorNotFound.
	FindByUser(ctx context.Context, userID string) (*models.RefreshToken, error)

	// DeleteByUser removes every refresh token of userID. Deleting when no
	// row exists is not an error.
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteExpired purges rows that expired before now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
