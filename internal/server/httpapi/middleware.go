package httpapi

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/auth"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// gin context keys
const (
	ctxRequestID = "request_id"
	ctxUserID    = "userID"
	ctxUserRole  = "userRole"
	ctxUser      = "user"
)

// RequestID tags each request with an id, reusing the caller's X-Request-ID
// when present, and echoes it in the response headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Writer.Header().Set(common.RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger writes one line per request.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"request_id", c.GetString(ctxRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
		}
		if id := c.GetString(ctxUserID); id != "" {
			kv = append(kv, "user_id", id)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(c.Request.Context(), "http request", kv...)
		case status >= http.StatusBadRequest:
			logger.Warn(c.Request.Context(), "http request", kv...)
		default:
			logger.Info(c.Request.Context(), "http request", kv...)
		}
	}
}

// Recovery turns a handler panic into a logged 500.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.Error(c.Request.Context(), "panic recovered",
			"request_id", c.GetString(ctxRequestID),
			"panic", rec)
		respondMessage(c, http.StatusInternalServerError, "Internal server error")
	})
}

// CORS allows the listed browser origins and answers preflight requests.
// Only listed origins may send credentials; "*" admits any other origin
// without them, so the access token cookie is never exposed to it.
func CORS(allowed []string) gin.HandlerFunc {
	allowAll := slices.Contains(allowed, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case origin == "":
		case slices.Contains(allowed, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		}
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// TokenVerifier checks access tokens. *auth.Issuer satisfies it.
type TokenVerifier interface {
	Parse(token string, want auth.TokenType) (*auth.Claims, error)
}

// RequireAuth accepts a bearer token, or the access token cookie for
// browser clients, and loads the user behind it.
func RequireAuth(tokens TokenVerifier, users AuthService, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			respondMessage(c, http.StatusUnauthorized, "Authorization header missing or invalid")
			return
		}

		claims, err := tokens.Parse(raw, auth.TokenTypeAccess)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		user, err := users.ValidateUser(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// A token for a user that no longer exists is an auth
				// failure, not a missing resource.
				respondMessage(c, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			respondError(c, logger, err)
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxUserRole, string(user.Role))
		c.Set(ctxUser, user)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.Role(c.GetString(ctxUserRole))
		if !slices.Contains(roles, role) {
			respondMessage(c, http.StatusForbidden, "Forbidden: insufficient permissions")
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader(common.AuthorizationHeader); h != "" {
		token, ok := strings.CutPrefix(h, common.BearerPrefix)
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if cookie, err := c.Cookie(common.AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

func currentUser(c *gin.Context) *models.User {
	u, _ := c.MustGet(ctxUser).(*models.User)
	return u
}
