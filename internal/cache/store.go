// Package cache provides the in-process TTL store shared by the gate's
// geo verdicts and any other short-lived lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a key/value store with per-entry expiry. Expired entries are
// treated as absent on read; go-cache checks expiry lazily on Get, so no
// background sweeper is required for correctness.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (any, bool)
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, bool)
	Namespace(prefix string) Store

	// Clear drops every entry in the underlying cache. Namespaced views
	// share one backend, so Clear empties all namespaces at once.
	Clear(ctx context.Context)
}

// Options configure the in-memory store.
type Options struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	Prefix          string
}

// NewStore creates a go-cache backed store with namespace support. A
// non-positive default TTL is a configuration error, reported here rather
// than surfacing as stale reads later.
func NewStore(opts Options) (Store, error) {
	if opts.DefaultTTL <= 0 {
		return nil, fmt.Errorf("cache: default TTL must be positive, got %s", opts.DefaultTTL)
	}
	cleanup := opts.CleanupInterval
	if cleanup <= 0 {
		cleanup = opts.DefaultTTL
	}
	backend := gocache.New(opts.DefaultTTL, cleanup)

	return &goCacheStore{
		backend:    backend,
		defaultTTL: opts.DefaultTTL,
		prefix:     normalizePrefix(opts.Prefix),
	}, nil
}

type goCacheStore struct {
	backend    *gocache.Cache
	defaultTTL time.Duration
	prefix     string
}

func (s *goCacheStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.backend.Set(s.prefixed(key), value, s.normalizeTTL(ttl))
	return nil
}

func (s *goCacheStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data, ttl)
}

func (s *goCacheStore) Get(_ context.Context, key string) (any, bool) {
	return s.backend.Get(s.prefixed(key))
}

func (s *goCacheStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return false, nil
	}
	data, ok := raw.([]byte)
	if !ok {
		return false, fmt.Errorf("cache: entry for %q is not JSON bytes", key)
	}
	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *goCacheStore) TTL(_ context.Context, key string) (time.Duration, bool) {
	_, exp, ok := s.backend.GetWithExpiration(s.prefixed(key))
	if !ok || exp.IsZero() {
		return 0, false
	}
	ttl := time.Until(exp)
	if ttl < 0 {
		return 0, false
	}
	return ttl, true
}

func (s *goCacheStore) Namespace(prefix string) Store {
	return &goCacheStore{
		backend:    s.backend,
		defaultTTL: s.defaultTTL,
		prefix:     joinPrefixes(s.prefix, prefix),
	}
}

func (s *goCacheStore) Clear(_ context.Context) {
	s.backend.Flush()
}

func (s *goCacheStore) prefixed(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.prefix
	}
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *goCacheStore) normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}

func normalizePrefix(prefix string) string {
	return strings.Trim(prefix, ": ")
}

func joinPrefixes(parts ...string) string {
	var normalized []string
	for _, part := range parts {
		if trimmed := normalizePrefix(part); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return strings.Join(normalized, ":")
}
