package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/khaugen/fragstats/internal/cache"
	"github.com/khaugen/fragstats/internal/config"
	"github.com/khaugen/fragstats/internal/gate"
	"github.com/khaugen/fragstats/internal/geo"
)

// Infrastructure bundles the shared gate components built from one
// immutable configuration snapshot.
type Infrastructure struct {
	Cache    cache.Store
	Resolver *geo.Resolver
	Pipeline *gate.Pipeline
}

// BuildInfrastructure wires the cache, geo resolver and gate pipeline.
// Configuration must already have passed Validate; inconsistencies left
// over are still refused here rather than papered over.
func BuildInfrastructure(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	store, err := cache.NewStore(cache.Options{
		Prefix:          "fragstats",
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}

	var resolver *geo.Resolver
	if cfg.Gate.Geo.Enabled {
		var metrics *geo.Metrics
		if cfg.Metrics.Enabled {
			metrics = geo.NewMetrics(cfg.Metrics.Namespace)
		}
		resolver, err = geo.NewResolver(geo.Options{
			BaseURL:          cfg.Gate.Geo.LookupBaseURL,
			AllowedCountries: cfg.Gate.Geo.AllowedCountries,
			Timeout:          cfg.Gate.Geo.LookupTimeout,
			CacheTTL:         cfg.Gate.Geo.CacheTTL,
			Store:            store,
			Logger:           logger,
			Metrics:          metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("geo resolver: %w", err)
		}
	}

	opts := gate.Options{
		TokenEnabled:      cfg.Gate.Token.Enabled,
		TokenSecret:       cfg.Gate.Token.Secret,
		GeoEnabled:        cfg.Gate.Geo.Enabled,
		GeoFailOpen:       cfg.Gate.Geo.FailOpen,
		RateEnabled:       cfg.Gate.Rate.Enabled,
		RateLimit:         cfg.Gate.Rate.Limit,
		RateWindow:        cfg.Gate.Rate.Window,
		RateKey:           cfg.Gate.Rate.Key,
		ExemptPaths:       cfg.Gate.ExemptPaths,
		TrustProxyHeaders: cfg.Gate.TrustProxyHeaders,
		AddressHeaders:    cfg.Gate.AddressHeaders,
	}
	if resolver != nil {
		opts.Resolver = resolver
	}

	pipeline, err := gate.NewPipeline(opts)
	if err != nil {
		return nil, fmt.Errorf("gate pipeline: %w", err)
	}

	return &Infrastructure{
		Cache:    store,
		Resolver: resolver,
		Pipeline: pipeline,
	}, nil
}
