// Package verifications stores one-time email verification codes.
package verifications

import (
	"context"

	"github.com/dmitrijs2005/pulse/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.EmailVerification) error
	// Latest returns the newest unverified code of userID or common.ErrorNotFound.
	Latest(ctx context.Context, userID string) (*models.EmailVerification, error)
	IncrementAttempts(ctx context.Context, id string) error
	MarkVerified(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}
