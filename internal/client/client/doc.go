// Package client is the HTTP client for the Pulse API.
//
// Every non-public request carries "Authorization: Bearer <access token>"
// read from a session.TokenStore. When the server answers 401 the client
// refreshes the token pair and retries the request once:
//
//   - concurrent 401s share a single refresh call (singleflight);
//   - a refresh is skipped when the stored access token already differs from
//     the one the failed request used, because another caller rotated it;
//   - a 401 on the retry is returned as ErrUnauthorized;
//   - a missing or rejected refresh token clears the store, navigates to
//     /login and returns ErrSessionExpired.
//
// Public calls (Signup, Login, Refresh, Ping) never trigger a refresh.
// Transport failures wrap ErrUnavailable; other non-2xx responses are
// returned as *APIError.
package client
