// Package models defines client-side data models used by the Pulse CLI.
package models

import (
	"time"

	"github.com/dmitrijs2005/pulse/internal/access"
)

// User is the account as returned by the API. Optional profile fields are
// nil until the matching onboarding step has run.
type User struct {
	ID                string               `json:"id"`
	Email             string               `json:"email"`
	FirstName         string               `json:"firstName"`
	LastName          string               `json:"lastName"`
	Role              string               `json:"role"`
	IsActive          bool                 `json:"isActive"`
	EmailVerified     bool                 `json:"emailVerified"`
	CreatorStatus     access.CreatorStatus `json:"creatorStatus"`
	NewsletterName    *string              `json:"newsletterName,omitempty"`
	SenderName        *string              `json:"senderName,omitempty"`
	SubscriptionPrice *int64               `json:"subscriptionPrice,omitempty"`
	PayoutPhone       *string              `json:"payoutPhone,omitempty"`
	AvatarKey         *string              `json:"avatarKey,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Tokens is an issued access/refresh pair. ExpiresIn is the access token
// lifetime in seconds.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Role           string `json:"role,omitempty"`
	NewsletterName string `json:"newsletterName,omitempty"`
}
