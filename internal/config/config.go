package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config aggregates every setting the process reads at startup. The loaded
// value is treated as an immutable snapshot; runtime changes require a
// restart.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"database"`
	Gate    GateConfig    `mapstructure:"gate"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

// HTTPConfig defines the HTTP listener settings.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	Environment string `mapstructure:"environment"`
}

// DBConfig defines database settings.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// MetricsConfig defines Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Token     string    `mapstructure:"token"`
	Buckets   []float64 `mapstructure:"buckets"`
}

// AuditConfig controls persistence of gate denial events.
type AuditConfig struct {
	Persist   bool          `mapstructure:"persist"`
	Retention time.Duration `mapstructure:"retention"`
}

// GateConfig is the request-gating configuration consumed by the gate
// pipeline. All fields are read once at startup.
type GateConfig struct {
	Token       TokenConfig `mapstructure:"token"`
	Geo         GeoConfig   `mapstructure:"geo"`
	Rate        RateConfig  `mapstructure:"rate"`
	ExemptPaths []string    `mapstructure:"exempt_paths"`
	// TrustProxyHeaders controls whether forwarding headers are believed.
	// Disable when no trusted reverse proxy terminates client traffic,
	// otherwise callers can spoof their address.
	TrustProxyHeaders bool     `mapstructure:"trust_proxy_headers"`
	AddressHeaders    []string `mapstructure:"address_headers"`
}

// TokenConfig defines bearer-token authentication settings.
type TokenConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
}

// GeoConfig defines country-based gating settings.
type GeoConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	AllowedCountries []string      `mapstructure:"allowed_countries"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	LookupTimeout    time.Duration `mapstructure:"lookup_timeout"`
	LookupBaseURL    string        `mapstructure:"lookup_base_url"`
	// FailOpen allows requests through when the upstream lookup is
	// degraded. Set false for a fail-closed deployment.
	FailOpen bool `mapstructure:"fail_open"`
}

// RateConfig defines fixed-window rate limiting settings.
type RateConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
	// Key selects the limiter key: "address" or "path".
	Key string `mapstructure:"key"`
}

// Validate rejects configurations that would start the process in an
// insecure or nonsensical state. Called once before any server starts.
func (c *Config) Validate() error {
	if c.Gate.Token.Enabled && strings.TrimSpace(c.Gate.Token.Secret) == "" {
		return fmt.Errorf("gate.token.secret is required when token auth is enabled (set FRAGSTATS_GATE_TOKEN_SECRET or API_TOKEN)")
	}
	if c.Gate.Geo.Enabled {
		if len(c.Gate.Geo.AllowedCountries) == 0 {
			return fmt.Errorf("gate.geo.allowed_countries must not be empty when geolocation is enabled")
		}
		if c.Gate.Geo.CacheTTL <= 0 {
			return fmt.Errorf("gate.geo.cache_ttl must be positive, got %s", c.Gate.Geo.CacheTTL)
		}
		if c.Gate.Geo.LookupTimeout <= 0 {
			return fmt.Errorf("gate.geo.lookup_timeout must be positive, got %s", c.Gate.Geo.LookupTimeout)
		}
	}
	if c.Gate.Rate.Enabled {
		if c.Gate.Rate.Limit <= 0 {
			return fmt.Errorf("gate.rate.limit must be positive, got %d", c.Gate.Rate.Limit)
		}
		if c.Gate.Rate.Window <= 0 {
			return fmt.Errorf("gate.rate.window must be positive, got %s", c.Gate.Rate.Window)
		}
		switch c.Gate.Rate.Key {
		case "", "address", "path":
		default:
			return fmt.Errorf("gate.rate.key must be %q or %q, got %q", "address", "path", c.Gate.Rate.Key)
		}
	}
	if c.Audit.Persist && c.Audit.Retention <= 0 {
		return fmt.Errorf("audit.retention must be positive when audit persistence is enabled")
	}
	return nil
}

// SlogLevel maps the configured level string onto slog levels.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
