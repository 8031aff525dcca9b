package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-availability/internal/availability"
	"github.com/hackgods/clinic-availability/internal/metrics"
	"github.com/hackgods/clinic-availability/internal/monitor"
)

// AvailabilityEngine is what the handlers need from *availability.Service.
type AvailabilityEngine interface {
	GetAvailability(ctx context.Context, q availability.Query) (*availability.AvailabilityResult, error)
	FindOptimalAppointment(ctx context.Context, c availability.Criteria) (*availability.OptimalAppointmentCandidate, error)
	Validator() *availability.Validator
}

type RouterConfig struct {
	Engine   AvailabilityEngine
	Health   *HealthHandler
	Registry *monitor.Registry
	Metrics  *metrics.AvailabilityMetrics
	// MetricsHandler defaults to promhttp.Handler().
	MetricsHandler http.Handler
	Logger         zerolog.Logger
	// Timezone is the reference for date displacement checks.
	Timezone *time.Location
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)

	// Availability endpoints
	r.Get("/organizations/{orgID}/availability", availabilityHandler(cfg.Engine, cfg.Registry, cfg.Metrics))
	r.Get("/organizations/{orgID}/optimal-appointment", optimalAppointmentHandler(cfg.Engine))
	r.Post("/availability/validate", validateHandler(cfg.Engine))
	r.Get("/dates/normalize", normalizeDateHandler(cfg.Timezone))

	return r
}
