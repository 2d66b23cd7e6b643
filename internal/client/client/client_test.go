package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/pulse/internal/client/models"
	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a TokenStore kept in memory.
type memStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	clears  int
}

func (m *memStore) SetTokens(_ context.Context, a, r string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = a, r
	return nil
}

func (m *memStore) AccessToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, nil
}

func (m *memStore) RefreshToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh, nil
}

func (m *memStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
	m.clears++
	return nil
}

var _ session.TokenStore = (*memStore)(nil)

type recordingNav struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNav) Navigate(p string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, p)
}

func (n *recordingNav) got() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"message": message, "data": data})
}

func tokens(access, refresh string) map[string]any {
	return map[string]any{"accessToken": access, "refreshToken": refresh, "expiresIn": 3600}
}

// fakeAPI accepts only the bearer token in valid and rotates to next on
// refresh when the presented refresh token matches refreshOK.
type fakeAPI struct {
	mu         sync.Mutex
	valid      string
	refreshOK  string
	next       [2]string
	refreshes  atomic.Int32
	meCalls    atomic.Int32
	rejectMe   bool
	refreshLag time.Duration
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		time.Sleep(f.refreshLag)
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		defer f.mu.Unlock()
		if body.RefreshToken != f.refreshOK {
			writeEnvelope(w, http.StatusUnauthorized, "Invalid refresh token", nil)
			return
		}
		f.valid = f.next[0]
		f.refreshOK = f.next[1]
		writeEnvelope(w, http.StatusOK, "Tokens refreshed", tokens(f.next[0], f.next[1]))
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls.Add(1)
		f.mu.Lock()
		ok := !f.rejectMe && r.Header.Get("Authorization") == "Bearer "+f.valid
		f.mu.Unlock()
		if !ok {
			writeEnvelope(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, "OK", map[string]any{"id": "u-1", "email": "ada@example.com", "creatorStatus": "draft"})
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			writeEnvelope(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, "Login successful", map[string]any{
			"user":   map[string]any{"id": "u-1", "email": body["email"]},
			"tokens": tokens("acc-1", "ref-1"),
		})
	})
	mux.HandleFunc("/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Validation failed","errors":{"email":"must be a valid email"}}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","uptime":"1s"}`))
	})
	return mux
}

func signupFixture() models.SignupRequest {
	return models.SignupRequest{Email: "not-an-email", Password: "secret1", FirstName: "Ada", LastName: "L"}
}

func newTestClient(t *testing.T, api *fakeAPI, store *memStore) (*Client, *recordingNav) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	nav := &recordingNav{}
	return New(srv.URL, store, WithNavigator(nav), WithTimeout(2*time.Second)), nav
}

func TestCall_AttachesBearer(t *testing.T) {
	api := &fakeAPI{valid: "acc-1"}
	c, _ := newTestClient(t, api, &memStore{access: "acc-1", refresh: "ref-1"})

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, int32(0), api.refreshes.Load())
	assert.Equal(t, StateAuthenticated, c.State())
}

func TestCall_RefreshesOnceAndRetries(t *testing.T) {
	api := &fakeAPI{valid: "acc-2", refreshOK: "ref-1", next: [2]string{"acc-2", "ref-2"}}
	store := &memStore{access: "acc-1", refresh: "ref-1"}
	c, nav := newTestClient(t, api, store)

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	assert.Equal(t, int32(1), api.refreshes.Load())
	assert.Equal(t, int32(2), api.meCalls.Load(), "original request retried exactly once")
	assert.Equal(t, "acc-2", store.access)
	assert.Equal(t, "ref-2", store.refresh)
	assert.Equal(t, StateAuthenticated, c.State())
	assert.Empty(t, nav.got())
}

func TestCall_UnauthorizedAfterRetryIsTerminal(t *testing.T) {
	api := &fakeAPI{rejectMe: true, refreshOK: "ref-1", next: [2]string{"acc-2", "ref-2"}}
	store := &memStore{access: "acc-1", refresh: "ref-1"}
	c, nav := newTestClient(t, api, store)

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), api.refreshes.Load())
	assert.Equal(t, int32(2), api.meCalls.Load())
	assert.Empty(t, nav.got(), "no navigation on a failed retry")
	assert.Equal(t, "acc-2", store.access, "rotated pair is kept")
}

func TestCall_RefreshRejectedExpiresSession(t *testing.T) {
	api := &fakeAPI{refreshOK: "something-else"}
	store := &memStore{access: "acc-1", refresh: "ref-1"}
	c, nav := newTestClient(t, api, store)

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, store.access)
	assert.Empty(t, store.refresh)
	assert.Equal(t, []string{LoginPath}, nav.got())
	assert.Equal(t, StateUnauthenticated, c.State())
}

func TestCall_MissingRefreshTokenExpiresSession(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{access: "stale"}
	c, nav := newTestClient(t, api, store)

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), api.refreshes.Load())
	assert.Equal(t, 1, store.clears)
	assert.Equal(t, []string{LoginPath}, nav.got())
}

func TestCall_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	api := &fakeAPI{
		valid:      "acc-2",
		refreshOK:  "ref-1",
		next:       [2]string{"acc-2", "ref-2"},
		refreshLag: 50 * time.Millisecond,
	}
	store := &memStore{access: "acc-1", refresh: "ref-1"}
	c, nav := newTestClient(t, api, store)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Me(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int32(1), api.refreshes.Load())
	assert.Equal(t, "acc-2", store.access)
	assert.Empty(t, nav.got())
}

func TestRefresh_SkippedWhenAlreadyRotated(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{access: "acc-new", refresh: "ref-new"}
	c, _ := newTestClient(t, api, store)

	tok, err := c.refresh(context.Background(), "acc-old")
	require.NoError(t, err)
	assert.Equal(t, "acc-new", tok)
	assert.Equal(t, int32(0), api.refreshes.Load())
}

func TestRefresh_AlreadyExpiredDoesNotNavigateTwice(t *testing.T) {
	api := &fakeAPI{}
	store := &memStore{}
	c, nav := newTestClient(t, api, store)

	_, err := c.refresh(context.Background(), "acc-old")
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, nav.got())
}

func TestPublicCalls_NeverRefresh(t *testing.T) {
	api := &fakeAPI{refreshOK: "ref-1"}
	store := &memStore{access: "acc-1", refresh: "ref-1"}
	c, nav := newTestClient(t, api, store)

	_, err := c.Login(context.Background(), "ada@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Equal(t, int32(0), api.refreshes.Load())
	assert.Empty(t, nav.got())
}

func TestLogin_StoresTokens(t *testing.T) {
	store := &memStore{}
	c, _ := newTestClient(t, &fakeAPI{}, store)

	u, err := c.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "acc-1", store.access)
	assert.Equal(t, "ref-1", store.refresh)
	assert.Equal(t, StateAuthenticated, c.State())

	ok, err := c.HasSession(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.EndSession(context.Background()))
	assert.Equal(t, StateUnauthenticated, c.State())
	ok, _ = c.HasSession(context.Background())
	assert.False(t, ok)
}

func TestSignup_ValidationErrorCarriesFields(t *testing.T) {
	c, _ := newTestClient(t, &fakeAPI{}, &memStore{})

	_, err := c.Signup(context.Background(), signupFixture())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "must be a valid email", apiErr.Fields["email"])
	assert.Equal(t, "Validation failed: email must be a valid email", apiErr.Error())
}

func TestCall_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, &memStore{access: "a", refresh: "r"})
	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestRefresh_TransportErrorKeepsSession(t *testing.T) {
	var calls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeEnvelope(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}
		// Drop the connection on the refresh call.
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
			}
		}
	}))
	t.Cleanup(srv.Close)

	store := &memStore{access: "a", refresh: "r"}
	nav := &recordingNav{}
	c := New(srv.URL, store, WithNavigator(nav))

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "r", store.refresh)
	assert.Empty(t, nav.got())
}

func TestRefresh_ServerStatusDecidesExpiry(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		expires bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, expires: true},
		{name: "bad request", status: http.StatusBadRequest, expires: true},
		{name: "internal error", status: http.StatusInternalServerError},
		{name: "unavailable", status: http.StatusServiceUnavailable},
		{name: "too many requests", status: http.StatusTooManyRequests},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/auth/refresh" {
					writeEnvelope(w, tc.status, http.StatusText(tc.status), nil)
					return
				}
				writeEnvelope(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			}))
			t.Cleanup(srv.Close)

			store := &memStore{access: "a", refresh: "r"}
			nav := &recordingNav{}
			c := New(srv.URL, store, WithNavigator(nav))
			c.setState(StateAuthenticated)

			_, err := c.Me(context.Background())
			if tc.expires {
				require.ErrorIs(t, err, ErrSessionExpired)
				assert.Empty(t, store.refresh)
				assert.Equal(t, []string{LoginPath}, nav.got())
				assert.Equal(t, StateUnauthenticated, c.State())
				return
			}

			require.ErrorIs(t, err, ErrUnavailable)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, "r", store.refresh)
			assert.Equal(t, "a", store.access)
			assert.Empty(t, nav.got())
			assert.Equal(t, StateAuthenticated, c.State())
		})
	}
}

func TestPing(t *testing.T) {
	c, _ := newTestClient(t, &fakeAPI{}, &memStore{})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestAPIError_WithoutFields(t *testing.T) {
	err := &APIError{Status: 409, Message: "Email already registered"}
	assert.Equal(t, "Email already registered", err.Error())
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "refreshing", StateRefreshing.String())
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
}
