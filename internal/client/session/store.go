// Package session keeps the client's access and refresh tokens.
//
// Two TokenStore implementations are provided: CookieStore holds the tokens
// as cookies in an in-memory jar scoped to the API origin, SQLiteStore
// persists them in the CLI's local database so a session survives restarts.
// Both expire access tokens after AccessTokenTTL and refresh tokens after
// RefreshTokenTTL.
package session

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pulse/internal/common"
)

const (
	AccessTokenName  = common.AccessTokenCookie
	RefreshTokenName = common.RefreshTokenCookie

	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenStore holds at most one token pair. Missing or expired tokens read as
// the empty string with a nil error.
type TokenStore interface {
	SetTokens(ctx context.Context, accessToken, refreshToken string) error
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}
