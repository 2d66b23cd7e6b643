// Package services contains application services for the Pulse client. The
// Session type tracks the signed-in user and derives dashboard access from
// their creator status.
package services

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/client/client"
	"github.com/dmitrijs2005/pulse/internal/client/models"
	"github.com/dmitrijs2005/pulse/internal/logging"
)

// API is the subset of *client.Client the session drives.
type API interface {
	Signup(ctx context.Context, in models.SignupRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	HasSession(ctx context.Context) (bool, error)
	EndSession(ctx context.Context) error

	SendVerification(ctx context.Context) error
	VerifyEmail(ctx context.Context, code string) error
	SetupProfile(ctx context.Context, newsletterName, senderName string) error
	SetPricing(ctx context.Context, priceCents int64) error
	SubmitPayout(ctx context.Context, phone string) error
	AvatarUploadURL(ctx context.Context) (*client.AvatarUpload, error)
}

// Session is the client's authentication state. Build one per process with
// NewSession; it is safe for concurrent use.
type Session struct {
	api    API
	nav    client.Navigator
	logger logging.Logger

	mu   sync.RWMutex
	user *models.User
}

func NewSession(api API, nav client.Navigator, logger logging.Logger) *Session {
	return &Session{api: api, nav: nav, logger: logger}
}

// Init loads the current user when tokens are stored. Any failure clears
// the tokens and leaves the session signed out.
func (s *Session) Init(ctx context.Context) {
	ok, err := s.api.HasSession(ctx)
	if err != nil {
		s.logger.Warn(ctx, "error reading stored session", "error", err)
	}
	if !ok {
		return
	}

	u, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Info(ctx, "stored session is no longer valid", "error", err)
		if err := s.api.EndSession(ctx); err != nil {
			s.logger.Warn(ctx, "error clearing tokens", "error", err)
		}
		s.setUser(nil)
		return
	}
	s.setUser(u)
}

func (s *Session) Register(ctx context.Context, in models.SignupRequest) error {
	u, err := s.api.Signup(ctx, in)
	if err != nil {
		return err
	}
	s.setUser(u)
	s.nav.Navigate(client.DashboardPath)
	return nil
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	u, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.setUser(u)
	s.nav.Navigate(client.DashboardPath)
	return nil
}

// Logout always signs out locally, even when the server call fails.
func (s *Session) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Debug(ctx, "logout request failed", "error", err)
	}
	if err := s.api.EndSession(ctx); err != nil {
		s.logger.Warn(ctx, "error clearing tokens", "error", err)
	}
	s.setUser(nil)
	s.nav.Navigate(client.LoginPath)
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) status() access.CreatorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.CreatorStatus
}

// Access is the dashboard matrix for the current user. Signed-out sessions
// get the draft matrix.
func (s *Session) Access() access.DashboardAccess {
	return access.GetDashboardAccess(s.status())
}

func (s *Session) Progress() int {
	return access.GetOnboardingProgress(s.status())
}

func (s *Session) StatusInfo() access.StatusInfo {
	return access.GetStatusInfo(s.status())
}

// Reload fetches the current user again.
func (s *Session) Reload(ctx context.Context) error {
	u, err := s.api.Me(ctx)
	if err != nil {
		return s.observe(err)
	}
	s.setUser(u)
	return nil
}

func (s *Session) ResendVerification(ctx context.Context) error {
	return s.step(ctx, s.api.SendVerification)
}

func (s *Session) VerifyEmail(ctx context.Context, code string) error {
	return s.step(ctx, func(ctx context.Context) error { return s.api.VerifyEmail(ctx, code) })
}

func (s *Session) SetupProfile(ctx context.Context, newsletterName, senderName string) error {
	return s.step(ctx, func(ctx context.Context) error { return s.api.SetupProfile(ctx, newsletterName, senderName) })
}

func (s *Session) SetPricing(ctx context.Context, priceCents int64) error {
	return s.step(ctx, func(ctx context.Context) error { return s.api.SetPricing(ctx, priceCents) })
}

func (s *Session) SubmitPayout(ctx context.Context, phone string) error {
	return s.step(ctx, func(ctx context.Context) error { return s.api.SubmitPayout(ctx, phone) })
}

// step runs an onboarding call and re-reads the user so status, progress
// and access reflect the server.
func (s *Session) step(ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return s.observe(err)
	}
	return s.Reload(ctx)
}

// AvatarUploadURL asks for a presigned upload target for the user's avatar.
func (s *Session) AvatarUploadURL(ctx context.Context) (*client.AvatarUpload, error) {
	up, err := s.api.AvatarUploadURL(ctx)
	if err != nil {
		return nil, s.observe(err)
	}
	return up, nil
}

// observe drops the user once the token manager has ended the session, so
// access checks fail closed along with it.
func (s *Session) observe(err error) error {
	if errors.Is(err, client.ErrSessionExpired) {
		s.setUser(nil)
	}
	return err
}

func (s *Session) setUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}
