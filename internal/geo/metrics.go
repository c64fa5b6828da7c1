package geo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks resolver activity: upstream lookups by outcome and cache
// hits that avoided a lookup.
type Metrics struct {
	lookups   *prometheus.CounterVec
	cacheHits prometheus.Counter
}

// NewMetrics registers resolver metrics under the given namespace on the
// default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fragstats"
	}
	return &Metrics{
		lookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "geo",
				Name:      "lookups_total",
				Help:      "Upstream geolocation lookups by outcome.",
			},
			[]string{"outcome"},
		),
		cacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "geo",
				Name:      "cache_hits_total",
				Help:      "Geo verdicts served from cache without an upstream lookup.",
			},
		),
	}
}
