package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/pulse/internal/client/models"
)

// AuthResponse is returned by Signup and Login.
type AuthResponse struct {
	User   models.User   `json:"user"`
	Tokens models.Tokens `json:"tokens"`
}

// AvatarUpload is a presigned upload target.
type AvatarUpload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Signup creates an account and starts a session with the issued pair.
func (c *Client) Signup(ctx context.Context, in models.SignupRequest) (*models.User, error) {
	return c.authenticate(ctx, "/auth/signup", in)
}

// Login exchanges credentials for a token pair and starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*models.User, error) {
	var res AuthResponse
	if err := c.call(ctx, request{method: http.MethodPost, path: path, body: body, public: true}, &res); err != nil {
		return nil, err
	}
	if err := c.StartSession(ctx, &res.Tokens); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// Refresh exchanges a refresh token for a new pair. It does not touch the
// store.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.Tokens, error) {
	var t models.Tokens
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refreshToken": refreshToken},
		public: true,
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Logout revokes the server-side refresh token. Local tokens are left to
// the caller.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, request{method: http.MethodPost, path: "/auth/logout"}, nil)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.call(ctx, request{method: http.MethodGet, path: "/auth/me"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Ping checks that the API answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	status, env, err := c.send(ctx, request{method: http.MethodGet, path: "/health"}, nil, "")
	if err != nil {
		return err
	}
	return decode(status, env, nil)
}

func (c *Client) SendVerification(ctx context.Context) error {
	return c.call(ctx, request{method: http.MethodPost, path: "/onboarding/verify-email/send"}, nil)
}

func (c *Client) VerifyEmail(ctx context.Context, code string) error {
	return c.call(ctx, request{method: http.MethodPost, path: "/onboarding/verify-email", body: map[string]string{"code": code}}, nil)
}

func (c *Client) SetupProfile(ctx context.Context, newsletterName, senderName string) error {
	return c.call(ctx, request{
		method: http.MethodPut,
		path:   "/onboarding/profile",
		body:   map[string]string{"newsletterName": newsletterName, "senderName": senderName},
	}, nil)
}

// SetPricing sets the monthly price in minor units (KES cents).
func (c *Client) SetPricing(ctx context.Context, priceCents int64) error {
	return c.call(ctx, request{
		method: http.MethodPut,
		path:   "/onboarding/pricing",
		body:   map[string]int64{"subscriptionPrice": priceCents},
	}, nil)
}

func (c *Client) SubmitPayout(ctx context.Context, phone string) error {
	return c.call(ctx, request{
		method: http.MethodPut,
		path:   "/onboarding/payout",
		body:   map[string]string{"payoutPhone": phone},
	}, nil)
}

func (c *Client) AvatarUploadURL(ctx context.Context) (*AvatarUpload, error) {
	var a AvatarUpload
	if err := c.call(ctx, request{method: http.MethodPost, path: "/onboarding/profile/avatar"}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
