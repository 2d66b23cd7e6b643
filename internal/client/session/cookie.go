package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"
)

// CookieStore keeps tokens in a cookie jar bound to the API origin. The jar
// enforces cookie expiry.
type CookieStore struct {
	mu     sync.Mutex
	jar    *cookiejar.Jar
	origin *url.URL
	now    func() time.Time
}

func NewCookieStore(apiURL string) (*CookieStore, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &CookieStore{jar: jar, origin: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, now: time.Now}, nil
}

// Jar exposes the underlying jar, e.g. for an http.Client.
func (s *CookieStore) Jar() http.CookieJar { return s.jar }

func (s *CookieStore) SetTokens(_ context.Context, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.jar.SetCookies(s.origin, []*http.Cookie{
		s.cookie(AccessTokenName, accessToken, now.Add(AccessTokenTTL)),
		s.cookie(RefreshTokenName, refreshToken, now.Add(RefreshTokenTTL)),
	})
	return nil
}

func (s *CookieStore) AccessToken(context.Context) (string, error) {
	return s.get(AccessTokenName), nil
}

func (s *CookieStore) RefreshToken(context.Context) (string, error) {
	return s.get(RefreshTokenName), nil
}

func (s *CookieStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jar.SetCookies(s.origin, []*http.Cookie{
		{Name: AccessTokenName, Path: "/", MaxAge: -1},
		{Name: RefreshTokenName, Path: "/", MaxAge: -1},
	})
	return nil
}

func (s *CookieStore) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.origin.Scheme == "https",
	}
}

func (s *CookieStore) get(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
