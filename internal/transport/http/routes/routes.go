// Package routes wires middleware and handlers onto the Gin engine.
package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/harborlight-foundation/member-portal/internal/infra/config"
	"github.com/harborlight-foundation/member-portal/internal/infra/security"
	"github.com/harborlight-foundation/member-portal/internal/transport/http/handlers"
	"github.com/harborlight-foundation/member-portal/internal/transport/http/middleware"
	"github.com/harborlight-foundation/member-portal/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Passwords    *usecase.PasswordService
	EmailChange  *usecase.EmailChangeService
	Users        *usecase.UserService
	Hours        *usecase.HoursService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Signer      *security.SessionSigner
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	requireAuth := middleware.RequireAuth(deps.Signer)
	requireAdmin := middleware.RequireAdmin(deps.Signer)

	checks := map[string]handlers.HealthChecker{}
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}
	healthHandler := handlers.NewHealthHandler(checks)

	r.GET("/healthz", healthHandler.Live)
	r.GET("/readyz", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
	authHandler := handlers.NewAuthHandler(deps.Services.Auth)
	passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords)
	emailHandler := handlers.NewEmailChangeHandler(deps.Services.EmailChange)
	userHandler := handlers.NewUserHandler(deps.Services.Users)
	hoursHandler := handlers.NewHoursHandler(deps.Services.Hours)
	adminHandler := handlers.NewAdminHandler(deps.Services.Users, deps.Services.Hours)

	rlCfg := deps.Config.RateLimit
	limit := func(name string, max int) []gin.HandlerFunc {
		if deps.RateLimiter == nil || max <= 0 {
			return nil
		}
		return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       name,
			Limit:      max,
			Window:     rlCfg.WindowDuration,
			Identifier: middleware.ClientIPIdentifier(),
		})}
	}

	auth := r.Group("/auth")
	{
		auth.POST("/signup", append(limit("signup", rlCfg.SignupMaxAttempts), registrationHandler.Signup)...)
		auth.POST("/activate", registrationHandler.Activate)
		auth.POST("/resend", append(limit("signup", rlCfg.SignupMaxAttempts), registrationHandler.Resend)...)
		auth.POST("/login", append(limit("login", rlCfg.LoginMaxAttempts), authHandler.Login)...)

		reset := auth.Group("/reset")
		reset.POST("/request", append(limit("password_reset", rlCfg.PasswordResetMaxAttempts), passwordHandler.RequestReset)...)
		reset.POST("/validate", passwordHandler.ValidateReset)
		reset.POST("/reset", passwordHandler.CompleteReset)
	}

	user := r.Group("/user")
	{
		user.POST("/change-password", requireAuth, passwordHandler.ChangePassword)
		user.POST("/update-email", requireAuth, emailHandler.RequestUpdate)
		// The confirmation link lands here from the mail client, so it
		// authenticates with the token alone.
		user.GET("/verify-update-email", emailHandler.ConfirmUpdate)

		user.GET("/me", requireAuth, userHandler.Me)
		user.PATCH("/me", requireAuth, userHandler.UpdateMe)
		user.DELETE("/me", requireAuth, userHandler.DeleteMe)

		user.POST("/hours", requireAuth, hoursHandler.Submit)
		user.GET("/hours", requireAuth, hoursHandler.List)
	}

	admin := r.Group("/admin", requireAdmin)
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users/:id/ban", adminHandler.BanUser)
		admin.POST("/users/:id/unban", adminHandler.UnbanUser)
		admin.POST("/users/:id/promote", adminHandler.PromoteUser)
		admin.POST("/users/:id/demote", adminHandler.DemoteUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)

		admin.GET("/hours/pending", adminHandler.PendingHours)
		admin.POST("/hours/:id/approve", adminHandler.ApproveHours)
		admin.POST("/hours/:id/reject", adminHandler.RejectHours)
	}

	return r
}
