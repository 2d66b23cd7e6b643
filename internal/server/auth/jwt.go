// Package auth contains the credential primitives of the API server: JWT
// issuing and verification, password hashing and refresh-token digests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens so one cannot be used
// in place of the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the JWT claims carried by both token types.
type Claims struct {
	jwt.RegisteredClaims
	Email string    `json:"email"`
	Role  string    `json:"role"`
	Type  TokenType `json:"typ"`
}

// Subject identifies whom a token pair is issued to.
type Subject struct {
	UserID string
	Email  string
	Role   string
}

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64 // access token lifetime, seconds
	RefreshExpiresAt time.Time
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret, issuer string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// RefreshTTL is the lifetime of issued refresh tokens.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

func (i *Issuer) sign(s Subject, typ TokenType, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Email: s.Email,
		Role:  s.Role,
		Type:  typ,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Issue mints a new access/refresh pair for s.
func (i *Issuer) Issue(s Subject) (*TokenPair, error) {
	now := i.now()

	access, err := i.sign(s, TokenTypeAccess, now, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(s, TokenTypeRefresh, now, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(i.accessTTL / time.Second),
		RefreshExpiresAt: now.Add(i.refreshTTL),
	}, nil
}

// Parse verifies signature, issuer, expiry and token type. Expired tokens
// yield common.ErrTokenExpired, anything else common.ErrInvalidToken.
func (i *Issuer) Parse(token string, want TokenType) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if claims.Type != want || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
