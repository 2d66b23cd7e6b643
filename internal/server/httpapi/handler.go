// Package httpapi is the gin-based HTTP surface of the API server.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/auth"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/dmitrijs2005/pulse/internal/server/services"
	"github.com/gin-gonic/gin"
)

type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ValidateUser(ctx context.Context, userID string) (*models.User, error)
}

type OnboardingService interface {
	SendEmailVerification(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, userID string, in services.VerifyEmailInput) (*models.User, error)
	SetupProfile(ctx context.Context, userID string, in services.ProfileInput) (*models.User, error)
	SetPricing(ctx context.Context, userID string, in services.PricingInput) (*models.User, error)
	SubmitPayout(ctx context.Context, userID string, in services.PayoutInput) (*models.User, error)
	ApprovePayout(ctx context.Context, creatorID string) (*models.User, error)
	EnableFullPayouts(ctx context.Context, creatorID string) (*models.User, error)
	Suspend(ctx context.Context, creatorID string) (*models.User, error)
	Reinstate(ctx context.Context, creatorID string) (*models.User, error)
}

type AvatarService interface {
	UploadURL(ctx context.Context, userID string) (string, string, error)
	DownloadURL(ctx context.Context, userID string) (string, error)
}

// Handler serves every route. Build it with NewHandler and mount it with
// Router.
type Handler struct {
	auth       AuthService
	tokens     TokenVerifier
	onboarding OnboardingService
	avatars    AvatarService
	logger     logging.Logger
	started    time.Time
}

func NewHandler(a AuthService, tokens TokenVerifier, o OnboardingService, av AvatarService, logger logging.Logger) *Handler {
	return &Handler{
		auth:       a,
		tokens:     tokens,
		onboarding: o,
		avatars:    av,
		logger:     logger,
		started:    time.Now(),
	}
}

// TokenResponse is the wire form of an issued pair.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func toTokenResponse(p *auth.TokenPair) TokenResponse {
	return TokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresIn: p.ExpiresIn}
}

type authPayload struct {
	User   *models.User  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AccessPayload is returned by GET /access.
type AccessPayload struct {
	Status     access.CreatorStatus   `json:"status"`
	Progress   int                    `json:"progress"`
	StatusInfo access.StatusInfo      `json:"statusInfo"`
	Access     access.DashboardAccess `json:"access"`
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) Signup(c *gin.Context) {
	var in services.RegisterInput
	if !h.bind(c, &in) {
		return
	}

	res, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Account created", authPayload{User: res.User, Tokens: toTokenResponse(res.Tokens)})
}

func (h *Handler) Login(c *gin.Context) {
	var in services.LoginInput
	if !h.bind(c, &in) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Login successful", authPayload{User: res.User, Tokens: toTokenResponse(res.Tokens)})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !h.bind(c, &req) {
		return
	}

	pair, err := h.auth.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Tokens refreshed", toTokenResponse(pair))
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), c.GetString(ctxUserID)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Logged out", nil)
}

func (h *Handler) Me(c *gin.Context) {
	respondSuccess(c, http.StatusOK, "OK", currentUser(c))
}

func (h *Handler) Access(c *gin.Context) {
	status := currentUser(c).CreatorStatus
	respondSuccess(c, http.StatusOK, "OK", AccessPayload{
		Status:     status,
		Progress:   access.GetOnboardingProgress(status),
		StatusInfo: access.GetStatusInfo(status),
		Access:     access.GetDashboardAccess(status),
	})
}

func (h *Handler) SendVerification(c *gin.Context) {
	if err := h.onboarding.SendEmailVerification(c.Request.Context(), c.GetString(ctxUserID)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Verification code sent", nil)
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	var in services.VerifyEmailInput
	if !h.bind(c, &in) {
		return
	}
	h.userStep(c, "Email verified", func(ctx context.Context, id string) (*models.User, error) {
		return h.onboarding.VerifyEmail(ctx, id, in)
	})
}

func (h *Handler) SetupProfile(c *gin.Context) {
	var in services.ProfileInput
	if !h.bind(c, &in) {
		return
	}
	h.userStep(c, "Profile updated", func(ctx context.Context, id string) (*models.User, error) {
		return h.onboarding.SetupProfile(ctx, id, in)
	})
}

func (h *Handler) SetPricing(c *gin.Context) {
	var in services.PricingInput
	if !h.bind(c, &in) {
		return
	}
	h.userStep(c, "Pricing saved", func(ctx context.Context, id string) (*models.User, error) {
		return h.onboarding.SetPricing(ctx, id, in)
	})
}

func (h *Handler) SubmitPayout(c *gin.Context) {
	var in services.PayoutInput
	if !h.bind(c, &in) {
		return
	}
	h.userStep(c, "Payout details submitted for review", func(ctx context.Context, id string) (*models.User, error) {
		return h.onboarding.SubmitPayout(ctx, id, in)
	})
}

func (h *Handler) AvatarUpload(c *gin.Context) {
	key, url, err := h.avatars.UploadURL(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Upload URL issued", gin.H{"key": key, "url": url})
}

func (h *Handler) AvatarDownload(c *gin.Context) {
	url, err := h.avatars.DownloadURL(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "OK", gin.H{"url": url})
}

func (h *Handler) ApprovePayout(c *gin.Context) {
	h.adminStep(c, "Payout approved", h.onboarding.ApprovePayout)
}

func (h *Handler) EnableFullPayouts(c *gin.Context) {
	h.adminStep(c, "Full payouts enabled", h.onboarding.EnableFullPayouts)
}

func (h *Handler) Suspend(c *gin.Context) {
	h.adminStep(c, "Creator suspended", h.onboarding.Suspend)
}

func (h *Handler) Reinstate(c *gin.Context) {
	h.adminStep(c, "Creator reinstated", h.onboarding.Reinstate)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

type stepFunc func(ctx context.Context, id string) (*models.User, error)

func (h *Handler) userStep(c *gin.Context, message string, step stepFunc) {
	user, err := step(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, message, user)
}

func (h *Handler) adminStep(c *gin.Context, message string, step stepFunc) {
	creatorID := c.Param("id")
	user, err := step(c.Request.Context(), creatorID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info(c.Request.Context(), "admin action",
		"admin_id", c.GetString(ctxUserID),
		"creator_id", creatorID,
		"status", user.CreatorStatus)
	respondSuccess(c, http.StatusOK, message, user)
}
