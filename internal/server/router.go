// Package server assembles the HTTP router from handlers and middleware
package server

import (
	"net/http"
	"time"

	authmw "github.com/dealerreferral/backend/internal/auth/middleware"
	"github.com/dealerreferral/backend/internal/handlers"
	"github.com/dealerreferral/backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Request limits
const (
	maxRequestBytes       = 1 << 20 // 1MB
	globalRequestsPerMin  = 100
	credentialRequestsMin = 10
)

// Options carries everything the router needs. Revocations may be nil
// when tokens are never revoked; SwaggerURL empty disables the docs route.
type Options struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	APIKey         string
	SwaggerURL     string

	Tokens      authmw.TokenValidator
	Revocations authmw.RevocationChecker

	AuthService     handlers.AuthService
	ReferralService handlers.ReferralService
	AdminService    handlers.AdminService
	TokenCleaner    handlers.RevocationCleaner
	HealthChecker   handlers.Pinger
}

// NewRouter builds the application router
func NewRouter(opts Options) http.Handler {
	authHandler := handlers.NewAuthHandler(opts.AuthService, opts.Logger)
	referralHandler := handlers.NewReferralHandler(opts.ReferralService, opts.Logger)
	adminHandler := handlers.NewAdminHandler(opts.AdminService, opts.Logger)
	tokenCleaningHandler := handlers.NewTokenCleaningHandler(opts.TokenCleaner, opts.Logger)
	healthHandler := handlers.NewHealthHandler(opts.HealthChecker, opts.Logger)

	requireAuth := authmw.RequireAuth(opts.Tokens, opts.Revocations, opts.Logger)
	credentialLimiter := httprate.LimitByIP(credentialRequestsMin, time.Minute)
	apiKeyMiddleware := authmw.APIKeyMiddleware(opts.APIKey)

	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(opts.Logger))
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(httprate.LimitByIP(globalRequestsPerMin, time.Minute))
	r.Use(middleware.RequestSizeLimit(maxRequestBytes))

	// Swagger documentation
	if opts.SwaggerURL != "" {
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(opts.SwaggerURL)))
	}

	healthHandler.RegisterRoutes(r)
	authHandler.RegisterRoutes(r, requireAuth, credentialLimiter)
	referralHandler.RegisterRoutes(r, requireAuth)
	adminHandler.RegisterRoutes(r, requireAuth)
	tokenCleaningHandler.RegisterRoutes(r, apiKeyMiddleware)

	return r
}
