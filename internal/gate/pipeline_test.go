package gate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaugen/fragstats/internal/cache"
	"github.com/khaugen/fragstats/internal/geo"
)

// countingResolver records how often Resolve runs and returns a fixed
// verdict per address.
type countingResolver struct {
	calls    int
	verdicts map[string]geo.Verdict
}

func (r *countingResolver) Resolve(_ context.Context, address string) geo.Verdict {
	r.calls++
	if v, ok := r.verdicts[address]; ok {
		return v
	}
	return geo.Verdict{Status: geo.StatusAllowed, Country: "NO"}
}

func TestNewPipelineValidation(t *testing.T) {
	_, err := NewPipeline(Options{TokenEnabled: true})
	assert.Error(t, err)

	_, err = NewPipeline(Options{GeoEnabled: true})
	assert.Error(t, err)

	_, err = NewPipeline(Options{RateEnabled: true, RateLimit: 0, RateWindow: time.Minute})
	assert.Error(t, err)

	_, err = NewPipeline(Options{RateEnabled: true, RateLimit: 10, RateWindow: time.Minute, RateKey: "header"})
	assert.Error(t, err)

	_, err = NewPipeline(Options{TokenEnabled: true, TokenSecret: "abc123"})
	assert.NoError(t, err)
}

func TestPipelineTokenChecks(t *testing.T) {
	p, err := NewPipeline(Options{TokenEnabled: true, TokenSecret: "abc123"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		allow  bool
		reason Reason
	}{
		{"valid token", "Bearer abc123", true, ReasonNone},
		{"wrong token", "Bearer wrong", false, ReasonInvalidCredential},
		{"missing header", "", false, ReasonMissingCredential},
		{"no scheme", "abc123", false, ReasonMalformedCredential},
		{"wrong scheme", "Basic abc123", false, ReasonMalformedCredential},
		{"lowercase scheme", "bearer abc123", true, ReasonNone},
		{"extra fields", "Bearer abc123 extra", false, ReasonMalformedCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/last-match", nil)
			r.RemoteAddr = "127.0.0.1:5000"
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			v := p.Evaluate(context.Background(), r)
			assert.Equal(t, tt.allow, v.Allowed)
			assert.Equal(t, tt.reason, v.Reason)
			if !tt.allow {
				assert.Equal(t, 401, v.Reason.HTTPStatus())
			}
		})
	}
}

func TestPipelineExemptPathSkipsEverything(t *testing.T) {
	resolver := &countingResolver{}
	p, err := NewPipeline(Options{
		TokenEnabled: true,
		TokenSecret:  "abc123",
		GeoEnabled:   true,
		Resolver:     resolver,
		RateEnabled:  true,
		RateLimit:    1,
		RateWindow:   time.Minute,
		ExemptPaths:  []string{"/health", "/metrics"},
	})
	require.NoError(t, err)

	// No credential, public caller, repeated well past the rate ceiling.
	for i := 0; i < 5; i++ {
		r := httptest.NewRequest("GET", "/health", nil)
		r.RemoteAddr = "203.0.113.7:4000"
		v := p.Evaluate(context.Background(), r)
		assert.True(t, v.Allowed)
	}
	assert.Zero(t, resolver.calls)
}

func TestPipelineExemptPatterns(t *testing.T) {
	p, err := NewPipeline(Options{
		TokenEnabled: true,
		TokenSecret:  "abc123",
		ExemptPaths:  []string{"/_internal/*"},
	})
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/_internal/ready", nil)
	r.RemoteAddr = "203.0.113.7:4000"
	assert.True(t, p.Evaluate(context.Background(), r).Allowed)

	r = httptest.NewRequest("GET", "/api/last-match", nil)
	r.RemoteAddr = "203.0.113.7:4000"
	v := p.Evaluate(context.Background(), r)
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonMissingCredential, v.Reason)
}

func TestPipelineLocalCallersSkipGeo(t *testing.T) {
	resolver := &countingResolver{}
	p, err := NewPipeline(Options{
		GeoEnabled: true,
		Resolver:   resolver,
	})
	require.NoError(t, err)

	for _, addr := range []string{"127.0.0.1:9000", "[::1]:9000", "10.0.0.5:9000", "192.168.1.4:9000"} {
		r := httptest.NewRequest("GET", "/api/map-stats", nil)
		r.RemoteAddr = addr
		v := p.Evaluate(context.Background(), r)
		assert.True(t, v.Allowed, "address %s", addr)
	}
	assert.Zero(t, resolver.calls)
}

func TestPipelineGeoDenial(t *testing.T) {
	resolver := &countingResolver{verdicts: map[string]geo.Verdict{
		"203.0.113.7": {Status: geo.StatusDenied, Country: "SE"},
	}}
	p, err := NewPipeline(Options{
		GeoEnabled: true,
		Resolver:   resolver,
	})
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/map-stats", nil)
	r.RemoteAddr = "203.0.113.7:4000"
	v := p.Evaluate(context.Background(), r)
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonGeoRestricted, v.Reason)
	assert.Equal(t, "SE", v.Country)
	assert.Equal(t, 403, v.Reason.HTTPStatus())
	assert.Equal(t, 1, resolver.calls)
}

func TestPipelineGeoFailurePolicy(t *testing.T) {
	resolver := &countingResolver{verdicts: map[string]geo.Verdict{
		"203.0.113.7": {Status: geo.StatusFailed},
	}}

	open, err := NewPipeline(Options{GeoEnabled: true, GeoFailOpen: true, Resolver: resolver})
	require.NoError(t, err)
	closed, err := NewPipeline(Options{GeoEnabled: true, GeoFailOpen: false, Resolver: resolver})
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/map-stats", nil)
	r.RemoteAddr = "203.0.113.7:4000"

	assert.True(t, open.Evaluate(context.Background(), r).Allowed)

	v := closed.Evaluate(context.Background(), r)
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonGeoRestricted, v.Reason)
}

func TestPipelineGeoVerdictCached(t *testing.T) {
	var upstreamCalls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls.Add(1)
		fmt.Fprint(w, `{"status":"success","countryCode":"SE"}`)
	}))
	defer upstream.Close()

	store, err := cache.NewStore(cache.Options{DefaultTTL: time.Minute})
	require.NoError(t, err)
	resolver, err := geo.NewResolver(geo.Options{
		BaseURL:          upstream.URL,
		AllowedCountries: []string{"NO"},
		Timeout:          time.Second,
		CacheTTL:         time.Hour,
		Store:            store,
	})
	require.NoError(t, err)

	p, err := NewPipeline(Options{GeoEnabled: true, Resolver: resolver})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest("GET", "/api/map-stats", nil)
		r.RemoteAddr = "203.0.113.7:4000"
		v := p.Evaluate(context.Background(), r)
		assert.False(t, v.Allowed)
		assert.Equal(t, ReasonGeoRestricted, v.Reason)
		assert.Equal(t, "SE", v.Country)
	}
	assert.Equal(t, int64(1), upstreamCalls.Load())
}

func TestPipelineRateLimit(t *testing.T) {
	p, err := NewPipeline(Options{
		RateEnabled: true,
		RateLimit:   3,
		RateWindow:  60 * time.Second,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest("GET", "/api/kd-ratios", nil)
		r.RemoteAddr = "203.0.113.7:4000"
		v := p.Evaluate(context.Background(), r)
		require.True(t, v.Allowed, "request %d", i+1)
		require.NotNil(t, v.Rate)
	}

	r := httptest.NewRequest("GET", "/api/kd-ratios", nil)
	r.RemoteAddr = "203.0.113.7:4000"
	v := p.Evaluate(context.Background(), r)
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonRateLimited, v.Reason)
	assert.Equal(t, 429, v.Reason.HTTPStatus())
	assert.Greater(t, v.RetryAfter, time.Duration(0))

	// A different caller is unaffected.
	r = httptest.NewRequest("GET", "/api/kd-ratios", nil)
	r.RemoteAddr = "198.51.100.9:4000"
	assert.True(t, p.Evaluate(context.Background(), r).Allowed)
}

func TestPipelineRateKeyPath(t *testing.T) {
	p, err := NewPipeline(Options{
		RateEnabled: true,
		RateLimit:   1,
		RateWindow:  time.Minute,
		RateKey:     "path",
	})
	require.NoError(t, err)

	first := httptest.NewRequest("GET", "/api/kd-ratios", nil)
	first.RemoteAddr = "203.0.113.7:4000"
	require.True(t, p.Evaluate(context.Background(), first).Allowed)

	// Same path from a different caller shares the budget.
	second := httptest.NewRequest("GET", "/api/kd-ratios", nil)
	second.RemoteAddr = "198.51.100.9:4000"
	assert.False(t, p.Evaluate(context.Background(), second).Allowed)

	other := httptest.NewRequest("GET", "/api/map-stats", nil)
	other.RemoteAddr = "203.0.113.7:4000"
	assert.True(t, p.Evaluate(context.Background(), other).Allowed)
}

func TestPipelineOrderTokenBeforeGeo(t *testing.T) {
	resolver := &countingResolver{}
	p, err := NewPipeline(Options{
		TokenEnabled: true,
		TokenSecret:  "abc123",
		GeoEnabled:   true,
		Resolver:     resolver,
	})
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/map-stats", nil)
	r.RemoteAddr = "203.0.113.7:4000"
	v := p.Evaluate(context.Background(), r)
	assert.Equal(t, ReasonMissingCredential, v.Reason)
	assert.Zero(t, resolver.calls)
}

func TestPipelineForwardedAddressUsed(t *testing.T) {
	resolver := &countingResolver{verdicts: map[string]geo.Verdict{
		"203.0.113.7": {Status: geo.StatusDenied, Country: "DE"},
	}}
	p, err := NewPipeline(Options{
		GeoEnabled:        true,
		Resolver:          resolver,
		TrustProxyHeaders: true,
	})
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/map-stats", nil)
	r.RemoteAddr = "10.0.0.5:4000"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	v := p.Evaluate(context.Background(), r)
	assert.False(t, v.Allowed)
	assert.Equal(t, "203.0.113.7", v.Address)
	assert.Equal(t, AddressPublic, v.Class)
}
