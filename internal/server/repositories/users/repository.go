// Package users declares the user repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/server/models"
)

// Repository persists user accounts. Lookups return common.ErrorNotFound for
// missing rows; Create returns common.ErrorAlreadyExists for duplicate emails.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// LockByID reads the user with a row lock held until the surrounding
	// transaction ends. It must be called on a transactional DBTX.
	LockByID(ctx context.Context, id string) (*models.User, error)

	UpdateStatus(ctx context.Context, id string, status access.CreatorStatus, prior *access.CreatorStatus) error
	MarkEmailVerified(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id, newsletterName, senderName string) error
	UpdatePricing(ctx context.Context, id string, priceCents int64) error
	UpdatePayout(ctx context.Context, id, phone string) error
	SetAvatarKey(ctx context.Context, id, key string) error
}
