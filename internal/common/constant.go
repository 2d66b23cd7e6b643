// Package common contains constants and sentinel errors shared by the server
// and client components of Pulse.
package common

const (
	// AuthorizationHeader carries "Bearer <access token>" on API requests.
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "

	// RequestIDHeader is echoed on every HTTP response.
	RequestIDHeader = "X-Request-ID"

	// AccessTokenCookie and RefreshTokenCookie name the client-side token slots.
	AccessTokenCookie  = "pulse_access_token"
	RefreshTokenCookie = "pulse_refresh_token"
)
