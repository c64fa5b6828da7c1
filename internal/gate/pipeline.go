// Package gate decides, for every inbound request, whether the caller is
// authenticated, geographically permitted and within rate budget before
// any handler runs. Checks execute in a fixed order and the first failure
// short-circuits with a typed denial; ordering is a property of this one
// component, not of middleware registration order.
package gate

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/khaugen/fragstats/internal/geo"
)

// CountryResolver is the geo dependency of the pipeline. *geo.Resolver
// satisfies it; tests substitute counting fakes.
type CountryResolver interface {
	Resolve(ctx context.Context, address string) geo.Verdict
}

// Options assemble a Pipeline from an immutable configuration snapshot.
type Options struct {
	TokenEnabled bool
	TokenSecret  string

	GeoEnabled  bool
	GeoFailOpen bool
	Resolver    CountryResolver

	RateEnabled bool
	RateLimit   int
	RateWindow  time.Duration
	// RateKey selects the limiter key: "address" (default) or "path".
	RateKey string

	// ExemptPaths are shell-style patterns (path.Match); a literal path
	// matches itself. Exempt requests bypass every check including rate
	// limiting.
	ExemptPaths []string

	TrustProxyHeaders bool
	AddressHeaders    []string
}

// Pipeline evaluates the ordered gate checks. It reads the request but
// never mutates it, and never panics on the request path: denials are its
// normal output, not exceptions.
type Pipeline struct {
	tokenEnabled bool
	tokenSecret  string

	geoEnabled  bool
	geoFailOpen bool
	resolver    CountryResolver

	rateEnabled bool
	rateKey     string
	limiter     *RateLimiter

	exemptPaths []string
	extractor   *AddressExtractor
}

// NewPipeline validates the option set and builds a Pipeline. Enabling a
// check without its dependency is a configuration error; the process must
// refuse to start rather than run half-configured.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.TokenEnabled && strings.TrimSpace(opts.TokenSecret) == "" {
		return nil, fmt.Errorf("gate: token auth enabled without a configured secret")
	}
	if opts.GeoEnabled && opts.Resolver == nil {
		return nil, fmt.Errorf("gate: geolocation enabled without a resolver")
	}

	p := &Pipeline{
		tokenEnabled: opts.TokenEnabled,
		tokenSecret:  opts.TokenSecret,
		geoEnabled:   opts.GeoEnabled,
		geoFailOpen:  opts.GeoFailOpen,
		resolver:     opts.Resolver,
		rateEnabled:  opts.RateEnabled,
		rateKey:      opts.RateKey,
		exemptPaths:  opts.ExemptPaths,
		extractor:    NewAddressExtractor(opts.TrustProxyHeaders, opts.AddressHeaders),
	}

	if opts.RateEnabled {
		if opts.RateLimit <= 0 {
			return nil, fmt.Errorf("gate: rate limit must be positive, got %d", opts.RateLimit)
		}
		if opts.RateWindow <= 0 {
			return nil, fmt.Errorf("gate: rate window must be positive, got %s", opts.RateWindow)
		}
		switch opts.RateKey {
		case "", "address":
			p.rateKey = "address"
		case "path":
		default:
			return nil, fmt.Errorf("gate: unknown rate key %q", opts.RateKey)
		}
		p.limiter = NewRateLimiter(opts.RateLimit, opts.RateWindow)
	}

	return p, nil
}

// Evaluate runs the checks in order and returns the single verdict:
// exempt path, token, locality, geo, rate. Loopback and private callers
// skip the geo check so local development and trusted internal callers
// work without disabling geofencing globally.
func (p *Pipeline) Evaluate(ctx context.Context, r *http.Request) Verdict {
	if p.pathExempt(r.URL.Path) {
		return allowed()
	}

	if p.tokenEnabled {
		if v := p.checkToken(r); !v.Allowed {
			return v
		}
	}

	address := p.extractor.ClientAddress(r)
	class := Classify(address)

	if p.geoEnabled && class == AddressPublic {
		verdict := p.resolver.Resolve(ctx, address)
		if !verdict.Allowed(p.geoFailOpen) {
			v := denied(ReasonGeoRestricted)
			v.Address = address
			v.Class = class
			v.Country = verdict.Country
			return v
		}
	}

	if p.rateEnabled {
		key := address
		if p.rateKey == "path" {
			key = r.URL.Path
		}
		result := p.limiter.Accept(key)
		if !result.Allowed {
			v := denied(ReasonRateLimited)
			v.Address = address
			v.Class = class
			v.RetryAfter = result.RetryAfter
			v.Rate = &result
			return v
		}
		v := allowed()
		v.Address = address
		v.Class = class
		v.Rate = &result
		return v
	}

	v := allowed()
	v.Address = address
	v.Class = class
	return v
}

func (p *Pipeline) pathExempt(requestPath string) bool {
	for _, pattern := range p.exemptPaths {
		if pattern == requestPath {
			return true
		}
		if ok, err := path.Match(pattern, requestPath); err == nil && ok {
			return true
		}
	}
	return false
}

// checkToken enforces the "Bearer <token>" scheme against the configured
// secret with a constant-time comparison.
func (p *Pipeline) checkToken(r *http.Request) Verdict {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return denied(ReasonMissingCredential)
	}
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return denied(ReasonMalformedCredential)
	}
	if !SecretEqual(fields[1], p.tokenSecret) {
		return denied(ReasonInvalidCredential)
	}
	return allowed()
}
