package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/gin-gonic/gin"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Message   string            `json:"message"`
	Data      any               `json:"data,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

func respondSuccess(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{
		Message:   message,
		Data:      data,
		RequestID: c.GetString(ctxRequestID),
	})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Message:   message,
		RequestID: c.GetString(ctxRequestID),
	})
}

// respondError maps a service error onto a status code and a client-safe
// message. Unrecognised errors become 500 and are logged with their cause.
func respondError(c *gin.Context, logger logging.Logger, err error) {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{
			Message:   "Validation failed",
			Errors:    ve.Fields,
			RequestID: c.GetString(ctxRequestID),
		})
		return
	}

	status, message := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed",
			"request_id", c.GetString(ctxRequestID),
			"path", c.FullPath(),
			"error", err)
	}
	respondMessage(c, status, message)
}

func classify(err error) (int, string) {
	switch {
	// Refresh failures wrap other auth errors, so they are matched first.
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, common.ErrInvalidRefreshToken.Error()
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, common.ErrInvalidCredentials.Error()
	case errors.Is(err, common.ErrAccountDeactivated):
		return http.StatusUnauthorized, common.ErrAccountDeactivated.Error()
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrEmailTaken), errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, common.ErrEmailTaken.Error()
	case errors.Is(err, common.ErrInvalidTransition):
		return http.StatusConflict, "Invalid status transition"
	case errors.Is(err, common.ErrNoPendingVerification):
		return http.StatusBadRequest, "No pending verification code"
	case errors.Is(err, common.ErrVerificationExpired):
		return http.StatusBadRequest, "Verification code expired"
	case errors.Is(err, common.ErrVerificationAttempts):
		return http.StatusBadRequest, "Too many verification attempts"
	case errors.Is(err, common.ErrVerificationCode):
		return http.StatusBadRequest, "Invalid verification code"
	}
	return http.StatusInternalServerError, "Internal server error"
}
