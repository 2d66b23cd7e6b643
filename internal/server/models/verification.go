package models

import "time"

// EmailVerification is a pending one-time email code.
type EmailVerification struct {
	ID        string
	UserID    string
	Code      string
	Attempts  int
	Verified  bool
	ExpiresAt time.Time
	CreatedAt time.Time
}
