package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Gate.Token.Enabled)
	assert.True(t, cfg.Gate.Geo.Enabled)
	assert.Equal(t, []string{"NO"}, cfg.Gate.Geo.AllowedCountries)
	assert.Equal(t, time.Hour, cfg.Gate.Geo.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Gate.Geo.LookupTimeout)
	assert.True(t, cfg.Gate.Geo.FailOpen)
	assert.Equal(t, 100, cfg.Gate.Rate.Limit)
	assert.Equal(t, time.Minute, cfg.Gate.Rate.Window)
	assert.Contains(t, cfg.Gate.ExemptPaths, "/health")
	assert.True(t, cfg.Audit.Persist)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FRAGSTATS_GATE_TOKEN_SECRET", "from-env")
	t.Setenv("FRAGSTATS_GATE_RATE_LIMIT", "7")
	t.Setenv("FRAGSTATS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Gate.Token.Secret)
	assert.Equal(t, 7, cfg.Gate.Rate.Limit)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestBindLegacyEnv(t *testing.T) {
	source := viper.New()
	source.Set("API_TOKEN", "legacy-token")
	source.Set("ALLOWED_COUNTRIES", "no, se ,dk")
	source.Set("GEO_CACHE_TTL", "3600")
	source.Set("RATE_LIMIT_WINDOW_SECONDS", "60")
	source.Set("GEOLOCATION_ENABLED", "false")

	target := viper.New()
	setDefaults(target)
	bindLegacyEnv(target, source)

	var cfg Config
	require.NoError(t, target.Unmarshal(&cfg))

	assert.Equal(t, "legacy-token", cfg.Gate.Token.Secret)
	assert.Equal(t, []string{"NO", "SE", "DK"}, cfg.Gate.Geo.AllowedCountries)
	assert.Equal(t, time.Hour, cfg.Gate.Geo.CacheTTL)
	assert.Equal(t, time.Minute, cfg.Gate.Rate.Window)
	assert.False(t, cfg.Gate.Geo.Enabled)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"NO"}, splitCSV("no"))
	assert.Equal(t, []string{"NO", "SE"}, splitCSV(" no , se "))
	assert.Empty(t, splitCSV(" , ,"))
}
