package geo

// Status is the outcome class of a country lookup.
type Status string

const (
	// StatusAllowed means the address resolved to a permitted country.
	StatusAllowed Status = "allowed"
	// StatusDenied means the address resolved to a country outside the
	// allow-list.
	StatusDenied Status = "denied"
	// StatusFailed means the upstream lookup timed out, errored or
	// returned an unusable body. How StatusFailed is treated (fail-open
	// vs fail-closed) is the caller's decision, not this package's.
	StatusFailed Status = "failed"
)

// Verdict is the cached result of resolving one address.
type Verdict struct {
	Status  Status `json:"status"`
	Country string `json:"country,omitempty"`
}

// Allowed reports whether the verdict permits the request under the given
// fail-open policy.
func (v Verdict) Allowed(failOpen bool) bool {
	switch v.Status {
	case StatusAllowed:
		return true
	case StatusFailed:
		return failOpen
	default:
		return false
	}
}
