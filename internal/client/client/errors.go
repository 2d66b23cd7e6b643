package client

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnavailable wraps transport failures: the server could not be
	// reached or the response could not be read.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized is returned when a request still gets 401 after a
	// successful refresh.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionExpired means the refresh token was missing or rejected; the
	// stored tokens have been cleared.
	ErrSessionExpired = errors.New("session expired")
)

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}
