package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/khaugen/fragstats/internal/gate"
	"github.com/khaugen/fragstats/internal/security"
)

// GateConfig wires the gate pipeline into the HTTP stack.
type GateConfig struct {
	Pipeline *gate.Pipeline
	Recorder security.Recorder
	Logger   *slog.Logger
	// Metrics counts verdicts per outcome when set.
	Metrics *GateMetrics
}

// GateMetrics counts gate verdicts by outcome.
type GateMetrics struct {
	verdicts *prometheus.CounterVec
}

// NewGateMetrics registers the verdict counter under namespace.
func NewGateMetrics(namespace string) *GateMetrics {
	if namespace == "" {
		namespace = "fragstats"
	}
	return &GateMetrics{
		verdicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "verdicts_total",
				Help:      "Gate verdicts by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

func (m *GateMetrics) observe(v gate.Verdict) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !v.Allowed {
		outcome = string(v.Reason)
	}
	m.verdicts.WithLabelValues(outcome).Inc()
}

// Gate evaluates every request against the pipeline before any handler
// runs. Denials are written here and never reach the router.
func Gate(cfg GateConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict := cfg.Pipeline.Evaluate(r.Context(), r)
			cfg.Metrics.observe(verdict)

			if verdict.Rate != nil {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(verdict.Rate.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(verdict.Rate.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(verdict.Rate.ResetAt.Unix(), 10))
			}

			if verdict.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.Recorder != nil {
				cfg.Recorder.Record(r.Context(), security.Event{
					Reason:    string(verdict.Reason),
					Method:    r.Method,
					Path:      r.URL.Path,
					Address:   verdict.Address,
					Country:   verdict.Country,
					UserAgent: r.Header.Get("User-Agent"),
					Occurred:  time.Now().UTC(),
				})
			}

			status := verdict.Reason.HTTPStatus()
			if status == http.StatusUnauthorized {
				w.Header().Set("WWW-Authenticate", `Bearer realm="fragstats"`)
			}
			if status == http.StatusTooManyRequests && verdict.RetryAfter > 0 {
				seconds := int(verdict.RetryAfter.Round(time.Second).Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
			}

			logger.Warn("request denied",
				slog.String("reason", string(verdict.Reason)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("address", verdict.Address))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			body := map[string]any{"error": denialMessage(verdict.Reason)}
			if verdict.Country != "" {
				body["country"] = verdict.Country
			}
			if err := json.NewEncoder(w).Encode(body); err != nil {
				logger.Warn("failed to encode denial JSON", slog.Any("error", err))
			}
		})
	}
}

func denialMessage(reason gate.Reason) string {
	switch reason {
	case gate.ReasonMissingCredential:
		return "authorization required"
	case gate.ReasonMalformedCredential:
		return "malformed authorization header"
	case gate.ReasonInvalidCredential:
		return "invalid token"
	case gate.ReasonGeoRestricted:
		return "access restricted in your region"
	case gate.ReasonRateLimited:
		return "rate limit exceeded"
	default:
		return "request denied"
	}
}
