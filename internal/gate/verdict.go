package gate

import (
	"net/http"
	"time"
)

// Reason identifies why the pipeline denied a request.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonMissingCredential   Reason = "missing_credential"
	ReasonMalformedCredential Reason = "malformed_credential"
	ReasonInvalidCredential   Reason = "invalid_credential"
	ReasonGeoRestricted       Reason = "geo_restricted"
	ReasonRateLimited         Reason = "rate_limited"
)

// HTTPStatus suggests a response status for the denial reason.
func (r Reason) HTTPStatus() int {
	switch r {
	case ReasonMissingCredential, ReasonMalformedCredential, ReasonInvalidCredential:
		return http.StatusUnauthorized
	case ReasonGeoRestricted:
		return http.StatusForbidden
	case ReasonRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusOK
	}
}

// Verdict is the pipeline's single output per request: either the request
// may proceed, or it carries a typed denial.
type Verdict struct {
	Allowed bool
	Reason  Reason

	// Address is the extracted caller address, empty for exempt paths
	// where extraction never ran.
	Address string
	Class   AddressClass

	// Country is set for geo denials when the upstream reported one.
	Country string

	// RetryAfter is set for rate-limit denials.
	RetryAfter time.Duration

	// Rate carries limiter accounting for response headers when the rate
	// check ran.
	Rate *RateResult
}

func allowed() Verdict {
	return Verdict{Allowed: true}
}

func denied(reason Reason) Verdict {
	return Verdict{Reason: reason}
}
