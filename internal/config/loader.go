package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from config.yaml, environment variables and an
// optional legacy .env file, in ascending priority order for real
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/fragstats/")

	v.SetEnvPrefix("FRAGSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Missing config file is fine; env vars and defaults carry it.
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "production")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/fragstats.db")

	v.SetDefault("gate.token.enabled", true)
	// Registered empty so the FRAGSTATS_GATE_TOKEN_SECRET env var is
	// visible to Unmarshal.
	v.SetDefault("gate.token.secret", "")
	v.SetDefault("gate.geo.enabled", true)
	v.SetDefault("gate.geo.allowed_countries", []string{"NO"})
	v.SetDefault("gate.geo.cache_ttl", "1h")
	v.SetDefault("gate.geo.lookup_timeout", "5s")
	v.SetDefault("gate.geo.lookup_base_url", "http://ip-api.com/json")
	v.SetDefault("gate.geo.fail_open", true)
	v.SetDefault("gate.rate.enabled", true)
	v.SetDefault("gate.rate.limit", 100)
	v.SetDefault("gate.rate.window", "1m")
	v.SetDefault("gate.rate.key", "address")
	v.SetDefault("gate.exempt_paths", []string{"/", "/health", "/healthz", "/_internal/ready", "/metrics"})
	v.SetDefault("gate.trust_proxy_headers", true)
	v.SetDefault("gate.address_headers", []string{"X-Forwarded-For", "X-Real-IP"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "fragstats")
	v.SetDefault("metrics.token", "")

	v.SetDefault("audit.persist", true)
	v.SetDefault("audit.retention", "720h")
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", "..", "../.."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		// Separate viper instance so .env keys don't confuse main config types.
		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}
		bindLegacyEnv(v, envViper)
	}
	return nil
}

// bindLegacyEnv maps the flat env variables older deployments used to
// the hierarchical structure, so existing .env files keep working.
func bindLegacyEnv(target *viper.Viper, source *viper.Viper) {
	mappings := map[string]string{
		"HTTP_ADDR":                 "http.addr",
		"SHUTDOWN_TIMEOUT":          "http.shutdown_timeout",
		"LOG_LEVEL":                 "log.level",
		"LOG_FORMAT":                "log.format",
		"ENV":                       "log.environment",
		"APP_ENV":                   "log.environment",
		"DB_PATH":                   "database.path",
		"API_TOKEN":                 "gate.token.secret",
		"API_TOKEN_ENABLED":         "gate.token.enabled",
		"GEOLOCATION_ENABLED":       "gate.geo.enabled",
		"ALLOWED_COUNTRIES":         "gate.geo.allowed_countries",
		"GEO_CACHE_TTL":             "gate.geo.cache_ttl",
		"GEO_FAIL_OPEN":             "gate.geo.fail_open",
		"RATE_LIMIT_LIMIT":          "gate.rate.limit",
		"RATE_LIMIT_WINDOW_SECONDS": "gate.rate.window",
		"TRUST_PROXY_HEADERS":       "gate.trust_proxy_headers",
	}

	for oldKey, newKey := range mappings {
		val := source.GetString(oldKey)
		if val == "" {
			continue
		}
		switch oldKey {
		case "ALLOWED_COUNTRIES":
			target.Set(newKey, splitCSV(val))
		case "GEO_CACHE_TTL", "RATE_LIMIT_WINDOW_SECONDS":
			// Legacy values are bare seconds.
			if !strings.ContainsAny(val, "smh") {
				val += "s"
			}
			target.Set(newKey, val)
		default:
			target.Set(newKey, val)
		}
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, strings.ToUpper(trimmed))
		}
	}
	return out
}
