// Package api assembles the HTTP surface: middleware chain, gate, and
// route registration.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khaugen/fragstats/internal/api/handler"
	"github.com/khaugen/fragstats/internal/api/middleware"
	"github.com/khaugen/fragstats/internal/config"
	"github.com/khaugen/fragstats/internal/gate"
	"github.com/khaugen/fragstats/internal/security"
	"github.com/khaugen/fragstats/internal/service"
)

// Services carries the service layer into the router.
type Services struct {
	Stats   service.StatsService
	Matches service.MatchService
}

// Deps carries everything else the router needs.
type Deps struct {
	Logger   *slog.Logger
	Pipeline *gate.Pipeline
	Recorder security.Recorder
	Metrics  config.MetricsConfig
}

// NewRouter builds the full middleware chain and registers all routes.
// The gate runs before any API handler; health and metrics endpoints are
// exempt through the pipeline's own exempt list.
func NewRouter(services Services, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if services.Stats == nil {
		panic("router requires StatsService")
	}
	if services.Matches == nil {
		panic("router requires MatchService")
	}
	if deps.Pipeline == nil {
		panic("router requires gate Pipeline")
	}

	r := chi.NewRouter()

	mCfg := middleware.DefaultMetricsConfig()
	if deps.Metrics.Namespace != "" {
		mCfg.Namespace = deps.Metrics.Namespace
	}
	if deps.Metrics.Subsystem != "" {
		mCfg.Subsystem = deps.Metrics.Subsystem
	}
	if len(deps.Metrics.Buckets) > 0 {
		mCfg.Buckets = deps.Metrics.Buckets
	}

	var metrics *middleware.Metrics
	var gateMetrics *middleware.GateMetrics
	if deps.Metrics.Enabled {
		metrics = middleware.NewMetrics(mCfg)
		gateMetrics = middleware.NewGateMetrics(mCfg.Namespace)
	}

	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)

	if metrics != nil {
		r.Use(metrics.Middleware(mCfg))
	}

	r.Use(
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.BodyLimit(middleware.BodyLimitConfig{
			MaxBytes: 10 * 1024 * 1024,
		}),
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     []string{"/health", "/healthz", "/_internal/ready", "/metrics"},
		}),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(5),
		middleware.Gate(middleware.GateConfig{
			Pipeline: deps.Pipeline,
			Recorder: deps.Recorder,
			Logger:   logger,
			Metrics:  gateMetrics,
		}),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Alias for Docker health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	r.Get("/_internal/ready", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if deps.Metrics.Enabled {
		if deps.Metrics.Token != "" {
			r.With(middleware.MetricsGuard(deps.Metrics.Token)).Handle("/metrics", promhttp.Handler())
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	registerAPIRoutes(r, logger, services)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		http.NotFound(w, req)
	})

	return r
}

func registerAPIRoutes(root chi.Router, logger *slog.Logger, services Services) {
	statsHandler := handler.NewStatsHandler(services.Stats, logger)
	uploadHandler := handler.NewUploadHandler(services.Matches, logger)

	root.Route("/api", func(api chi.Router) {
		api.Get("/player-stats", statsHandler.PlayerStats)
		api.Get("/map-stats", statsHandler.MapStats)
		api.Get("/map-win-rates", statsHandler.MapWinRates)
		api.Get("/kd-ratios", statsHandler.KDRatios)
		api.Get("/chicken-kills", statsHandler.ChickenKills)
		api.Get("/multi-kills", statsHandler.MultiKills)
		api.Get("/utility-damage", statsHandler.UtilityDamage)
		api.Get("/last-match", statsHandler.LastMatch)
		api.Post("/upload", uploadHandler.Upload)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}
