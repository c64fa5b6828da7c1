package gate

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// AddressClass classifies a caller address by network locality.
type AddressClass int

const (
	AddressPublic AddressClass = iota
	AddressLoopback
	AddressPrivate
)

func (c AddressClass) String() string {
	switch c {
	case AddressLoopback:
		return "loopback"
	case AddressPrivate:
		return "private"
	default:
		return "public"
	}
}

// AddressExtractor derives the caller address from a request. When header
// trust is enabled the configured forwarding headers are consulted in
// priority order; a multi-hop X-Forwarded-For chain contributes its first
// hop. Headers are trusted unconditionally, so deployments without a
// trusted reverse proxy in front must disable header trust.
type AddressExtractor struct {
	trustHeaders bool
	headers      []string
}

// NewAddressExtractor builds an extractor with the given header priority
// list. An empty list falls back to X-Forwarded-For then X-Real-IP.
func NewAddressExtractor(trustHeaders bool, headers []string) *AddressExtractor {
	if len(headers) == 0 {
		headers = []string{"X-Forwarded-For", "X-Real-IP"}
	}
	return &AddressExtractor{trustHeaders: trustHeaders, headers: headers}
}

// ClientAddress returns the effective caller address for r.
func (e *AddressExtractor) ClientAddress(r *http.Request) string {
	if e.trustHeaders {
		for _, name := range e.headers {
			value := strings.TrimSpace(r.Header.Get(name))
			if value == "" {
				continue
			}
			// Forwarding chains list the originating client first.
			if first, _, found := strings.Cut(value, ","); found {
				value = first
			}
			if addr := strings.TrimSpace(value); addr != "" {
				return addr
			}
		}
	}
	return hostFromRemoteAddr(r.RemoteAddr)
}

func hostFromRemoteAddr(remoteAddr string) string {
	trimmed := strings.TrimSpace(remoteAddr)
	if trimmed == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(trimmed); err == nil {
		return host
	}
	return trimmed
}

// Classify buckets an address as loopback, private or public. Addresses
// that do not parse classify as public; they then fail geo resolution and
// fall under the configured fail-open/fail-closed policy.
func Classify(address string) AddressClass {
	addr, err := netip.ParseAddr(strings.TrimSpace(address))
	if err != nil {
		return AddressPublic
	}
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback():
		return AddressLoopback
	case addr.IsPrivate(), addr.IsLinkLocalUnicast():
		return AddressPrivate
	default:
		return AddressPublic
	}
}
