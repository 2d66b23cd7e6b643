package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/pulse/internal/client/models"
	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"golang.org/x/sync/singleflight"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"

	refreshKey   = "refresh"
	maxBodyBytes = 1 << 20
)

// Navigator moves the user to another screen, e.g. the login prompt.
type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithNavigator(n Navigator) Option     { return func(c *Client) { c.nav = n } }
func WithLogger(l logging.Logger) Option   { return func(c *Client) { c.logger = l } }

// WithTimeout bounds every single HTTP exchange, including refreshes.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	store   session.TokenStore
	nav     Navigator
	logger  logging.Logger
	timeout time.Duration

	group singleflight.Group
	state atomic.Int32
}

func New(baseURL string, store session.TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		store:   store,
		nav:     NavigatorFunc(func(string) {}),
		logger:  logging.Nop(),
		timeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) setState(s State) { c.state.Store(int32(s)) }

// StartSession stores an issued pair and marks the client authenticated.
func (c *Client) StartSession(ctx context.Context, t *models.Tokens) error {
	if err := c.store.SetTokens(ctx, t.AccessToken, t.RefreshToken); err != nil {
		return fmt.Errorf("store tokens: %w", err)
	}
	c.setState(StateAuthenticated)
	return nil
}

// EndSession clears the stored tokens without contacting the server.
func (c *Client) EndSession(ctx context.Context) error {
	c.setState(StateUnauthenticated)
	return c.store.Clear(ctx)
}

// HasSession reports whether any token is stored.
func (c *Client) HasSession(ctx context.Context) (bool, error) {
	a, err := c.store.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	if a != "" {
		return true, nil
	}
	r, err := c.store.RefreshToken(ctx)
	if err != nil {
		return false, err
	}
	return r != "", nil
}

type request struct {
	method string
	path   string
	body   any
	public bool
}

type envelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// call performs r and decodes the envelope data into out.
func (c *Client) call(ctx context.Context, r request, out any) error {
	var payload []byte
	if r.body != nil {
		var err error
		if payload, err = json.Marshal(r.body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	if r.public {
		status, env, err := c.send(ctx, r, payload, "")
		if err != nil {
			return err
		}
		return decode(status, env, out)
	}

	token, err := c.store.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}

	status, env, err := c.send(ctx, r, payload, token)
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized {
		if token != "" && status < 300 {
			c.state.CompareAndSwap(int32(StateUnauthenticated), int32(StateAuthenticated))
		}
		return decode(status, env, out)
	}

	fresh, err := c.refresh(ctx, token)
	if err != nil {
		return err
	}

	status, env, err = c.send(ctx, r, payload, fresh)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return decode(status, env, out)
}

func (c *Client) send(ctx context.Context, r request, payload []byte, token string) (int, *envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	env := &envelope{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, env); err != nil {
			if resp.StatusCode < 300 {
				return 0, nil, fmt.Errorf("decode response: %w", err)
			}
			env = &envelope{}
		}
	}
	return resp.StatusCode, env, nil
}

func decode(status int, env *envelope, out any) error {
	if status < 200 || status >= 300 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Status: status, Message: msg, Fields: env.Errors}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// refresh returns an access token newer than used, rotating the pair if
// nobody else has. Concurrent callers share one rotation.
func (c *Client) refresh(ctx context.Context, used string) (string, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		// The shared refresh must not die with the first caller's context.
		ctx := context.WithoutCancel(ctx)

		current, err := c.store.AccessToken(ctx)
		if err == nil && current != "" && current != used {
			return current, nil
		}

		rt, err := c.store.RefreshToken(ctx)
		if err != nil || rt == "" {
			if used != "" && current == "" && c.State() == StateUnauthenticated {
				// An earlier refresh already ended this session.
				return "", ErrSessionExpired
			}
			c.expire(ctx)
			return "", ErrSessionExpired
		}

		prev := c.State()
		c.setState(StateRefreshing)

		pair, err := c.Refresh(ctx, rt)
		if err != nil {
			if !refreshRejected(err) {
				// The server never judged the token; keep it for a later try.
				c.setState(prev)
				if errors.Is(err, ErrUnavailable) {
					return "", err
				}
				return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
			c.logger.Info(ctx, "refresh rejected", "error", err)
			c.expire(ctx)
			return "", ErrSessionExpired
		}

		if err := c.StartSession(ctx, pair); err != nil {
			c.expire(ctx)
			return "", err
		}
		c.logger.Debug(ctx, "tokens refreshed")
		return pair.AccessToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refreshRejected reports whether the server refused the refresh token
// itself, as opposed to failing to answer.
func refreshRejected(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized
}

// expire clears the session and sends the user to the login screen.
func (c *Client) expire(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn(ctx, "error clearing tokens", "error", err)
	}
	c.setState(StateUnauthenticated)
	c.nav.Navigate(LoginPath)
}
