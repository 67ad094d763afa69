package main

import (
	"net/http"

	"flowboard/internal/adapters/api"
	"flowboard/internal/adapters/api/middleware"
	appboard "flowboard/internal/application/board"
	appsession "flowboard/internal/application/session"
	"flowboard/internal/config"
	"flowboard/internal/infrastructure/cookies"
	"flowboard/internal/infrastructure/identity"
	"flowboard/internal/infrastructure/metrics"
	"flowboard/internal/infrastructure/upstream"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// newRouter wires every component into a gin engine
func newRouter(cfg *config.Config) (*gin.Engine, *middleware.PathPolicy) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	client := upstream.NewClient(&cfg.Upstream, upstream.WithMetrics(m))
	decoder := identity.NewDecoder(cfg.Session.TokenSecret)
	if !decoder.Verifies() {
		log.Info().Msg("access tokens are decoded without signature verification")
	}

	store := cookies.NewStore(&cfg.Session)
	policy := middleware.NewPathPolicy(&cfg.Guard)

	handler := api.NewHandler(
		appsession.NewService(&cfg.Upstream, client, decoder, m),
		appboard.NewService(client),
		client,
		store,
		policy,
		m,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics(m))

	// cookies only travel with credentialed requests, which forbid a wildcard origin
	corsConfig := cors.Config{
		AllowOrigins:  []string{cfg.AllowedOrigin},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
	}
	if cfg.AllowedOrigin == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	r.Use(middleware.Guard(policy, store, m))

	var limit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limit = middleware.NewRateLimiter(&cfg.RateLimit).Middleware()
	}
	handler.RegisterRoutes(r, limit)

	return r, policy
}
