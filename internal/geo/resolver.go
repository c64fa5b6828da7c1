// Package geo resolves caller addresses to country verdicts through an
// external lookup service, caching results to keep upstream traffic low.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/khaugen/fragstats/internal/cache"
)

// failTTLDivisor shortens the cache TTL for failed lookups so a degraded
// upstream self-heals quickly instead of pinning failures for a full hour.
const failTTLDivisor = 10

// Options configure a Resolver.
type Options struct {
	// BaseURL of the lookup service, ip-api.com JSON endpoint shape:
	// GET {BaseURL}/{address}?fields=status,countryCode.
	BaseURL          string
	AllowedCountries []string
	// Timeout bounds each Resolve call, enforced here rather than left
	// to any host client default.
	Timeout  time.Duration
	CacheTTL time.Duration
	Store    cache.Store
	Logger   *slog.Logger
	Metrics  *Metrics
}

// Resolver answers "which country is this address in, and is it allowed"
// with a TTL cache in front of the upstream service.
type Resolver struct {
	client   *http.Client
	baseURL  string
	allowed  map[string]struct{}
	store    cache.Store
	ttl      time.Duration
	failTTL  time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *Metrics
}

// NewResolver constructs a Resolver. Store and at least one allowed
// country are required; Timeout and CacheTTL must be validated by the
// caller's configuration layer.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("geo: cache store is required")
	}
	if len(opts.AllowedCountries) == 0 {
		return nil, fmt.Errorf("geo: allowed country list must not be empty")
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("geo: lookup timeout must be positive, got %s", opts.Timeout)
	}
	if opts.CacheTTL <= 0 {
		return nil, fmt.Errorf("geo: cache TTL must be positive, got %s", opts.CacheTTL)
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://ip-api.com/json"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[string]struct{}, len(opts.AllowedCountries))
	for _, code := range opts.AllowedCountries {
		allowed[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}

	return &Resolver{
		client:  &http.Client{Timeout: opts.Timeout},
		baseURL: baseURL,
		allowed: allowed,
		store:   opts.Store.Namespace("geo"),
		ttl:     opts.CacheTTL,
		failTTL: opts.CacheTTL / failTTLDivisor,
		timeout: opts.Timeout,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Resolve returns the country verdict for address, consulting the cache
// first. Failed lookups are cached too, at a shorter TTL, so a struggling
// upstream is not hammered once per request.
//
// The upstream call runs on a context detached from the request: if the
// caller goes away mid-lookup the result still lands in the cache for
// future requests. Nothing is written back to the departed caller here.
func (r *Resolver) Resolve(ctx context.Context, address string) Verdict {
	var cached Verdict
	if ok, err := r.store.GetJSON(ctx, address, &cached); err == nil && ok {
		if r.metrics != nil {
			r.metrics.cacheHits.Inc()
		}
		return cached
	}

	verdict := r.lookup(context.WithoutCancel(ctx), address)
	if r.metrics != nil {
		r.metrics.lookups.WithLabelValues(string(verdict.Status)).Inc()
	}

	ttl := r.ttl
	if verdict.Status == StatusFailed {
		ttl = r.failTTL
	}
	if err := r.store.SetJSON(ctx, address, verdict, ttl); err != nil {
		r.logger.Warn("geo verdict not cached", "address", address, "error", err)
	}
	return verdict
}

type lookupResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
}

func (r *Resolver) lookup(ctx context.Context, address string) Verdict {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint := r.baseURL + "/" + url.PathEscape(address) + "?fields=status,countryCode"

	var parsed lookupResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := r.client.Do(req)
		if err != nil {
			// Transport errors may be transient; retry within the
			// deadline.
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("lookup returned status %d", resp.StatusCode))
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("malformed lookup body: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = r.timeout

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		r.logger.Warn("geo lookup failed", "address", address, "error", err)
		return Verdict{Status: StatusFailed}
	}

	code := strings.ToUpper(strings.TrimSpace(parsed.CountryCode))
	if parsed.Status != "success" || code == "" {
		r.logger.Warn("geo lookup unsuccessful", "address", address, "upstream_status", parsed.Status)
		return Verdict{Status: StatusFailed}
	}

	if _, ok := r.allowed[code]; ok {
		return Verdict{Status: StatusAllowed, Country: code}
	}
	return Verdict{Status: StatusDenied, Country: code}
}
