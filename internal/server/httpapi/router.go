package httpapi

import (
	"time"

	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/gin-gonic/gin"
)

// NewRouter mounts h on a fresh gin engine with the standard middleware
// chain: request id, recovery, request logging and CORS. Routes under /auth
// are limited to authRateLimit requests per minute per client address.
func NewRouter(h *Handler, corsOrigins []string, authRateLimit int, logger logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(logger), RequestLogger(logger), CORS(corsOrigins))

	r.GET("/health", h.Health)

	authed := RequireAuth(h.tokens, h.auth, logger)

	a := r.Group("/auth", RateLimit(authRateLimit, time.Minute, logger))
	{
		a.POST("/signup", h.Signup)
		a.POST("/login", h.Login)
		a.POST("/refresh", h.Refresh)
		a.POST("/logout", authed, h.Logout)
		a.GET("/me", authed, h.Me)
	}

	r.GET("/access", authed, h.Access)

	o := r.Group("/onboarding", authed)
	{
		o.POST("/verify-email/send", h.SendVerification)
		o.POST("/verify-email", h.VerifyEmail)
		o.PUT("/profile", h.SetupProfile)
		o.POST("/profile/avatar", h.AvatarUpload)
		o.GET("/profile/avatar", h.AvatarDownload)
		o.PUT("/pricing", h.SetPricing)
		o.PUT("/payout", h.SubmitPayout)
	}

	admin := r.Group("/admin", authed, RequireRole(models.RoleAdmin))
	{
		admin.POST("/creators/:id/approve-payout", h.ApprovePayout)
		admin.POST("/creators/:id/enable-full-payouts", h.EnableFullPayouts)
		admin.POST("/creators/:id/suspend", h.Suspend)
		admin.POST("/creators/:id/reinstate", h.Reinstate)
	}

	return r
}
