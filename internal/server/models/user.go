// Package models holds the server-side persistence models.
package models

import (
	"time"

	"github.com/dmitrijs2005/pulse/internal/access"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleCreator    Role = "creator"
	RoleSubscriber Role = "subscriber"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCreator, RoleSubscriber, RoleAdmin:
		return true
	}
	return false
}

// User is an account row. PasswordHash never leaves the server.
type User struct {
	ID                string               `json:"id"`
	Email             string               `json:"email"`
	PasswordHash      string               `json:"-"`
	FirstName         string               `json:"firstName"`
	LastName          string               `json:"lastName"`
	Role              Role                 `json:"role"`
	IsActive          bool                 `json:"isActive"`
	EmailVerified     bool                 `json:"emailVerified"`
	CreatorStatus     access.CreatorStatus `json:"creatorStatus"`
	NewsletterName    *string              `json:"newsletterName,omitempty"`
	SenderName        *string              `json:"senderName,omitempty"`
	SubscriptionPrice *int64               `json:"subscriptionPrice,omitempty"`
	PayoutPhone       *string              `json:"payoutPhone,omitempty"`
	AvatarKey         *string              `json:"avatarKey,omitempty"`

	// StatusBeforeSuspension is restored on reinstatement.
	StatusBeforeSuspension *access.CreatorStatus `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
