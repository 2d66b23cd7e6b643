package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var subject = Subject{UserID: "user-123", Email: "ada@example.com", Role: "creator"}

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()
	iss := NewIssuer("super-secret", "pulse", time.Hour, 7*24*time.Hour)

	pair, err := iss.Issue(subject)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), pair.ExpiresIn)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), pair.RefreshExpiresAt, time.Minute)

	ac, err := iss.Parse(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-123", ac.Subject)
	assert.Equal(t, "ada@example.com", ac.Email)
	assert.Equal(t, "creator", ac.Role)

	rc, err := iss.Parse(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-123", rc.Subject)
	assert.NotEqual(t, ac.ID, rc.ID)
}

func TestIssue_SameInstantStillUnique(t *testing.T) {
	t.Parallel()
	iss := NewIssuer("k", "pulse", time.Hour, time.Hour)
	fixed := time.Unix(1_700_000_000, 0)
	iss.now = func() time.Time { return fixed }

	a, err := iss.Issue(subject)
	require.NoError(t, err)
	b, err := iss.Issue(subject)
	require.NoError(t, err)
	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
}

func TestParse_WrongType(t *testing.T) {
	t.Parallel()
	iss := NewIssuer("k", "pulse", time.Hour, time.Hour)
	pair, err := iss.Issue(subject)
	require.NoError(t, err)

	_, err = iss.Parse(pair.AccessToken, TokenTypeRefresh)
	require.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = iss.Parse(pair.RefreshToken, TokenTypeAccess)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()
	iss := NewIssuer("k", "pulse", time.Minute, time.Minute)
	pair, err := iss.Issue(subject)
	require.NoError(t, err)

	iss.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = iss.Parse(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()
	pair, err := NewIssuer("right", "pulse", time.Hour, time.Hour).Issue(subject)
	require.NoError(t, err)

	_, err = NewIssuer("wrong", "pulse", time.Hour, time.Hour).Parse(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_WrongIssuer(t *testing.T) {
	t.Parallel()
	pair, err := NewIssuer("k", "someone-else", time.Hour, time.Hour).Issue(subject)
	require.NoError(t, err)

	_, err = NewIssuer("k", "pulse", time.Hour, time.Hour).Parse(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "pulse",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TokenTypeAccess,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewIssuer("k", "pulse", time.Hour, time.Hour).Parse(tok, TokenTypeAccess)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()
	iss := NewIssuer("k", "pulse", time.Hour, time.Hour)

	for _, tok := range []string{"", "not.a.jwt", strings.Repeat("a", 300)} {
		_, err := iss.Parse(tok, TokenTypeAccess)
		require.ErrorIs(t, err, common.ErrInvalidToken, "token %q", tok)
	}
}
