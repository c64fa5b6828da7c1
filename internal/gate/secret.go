package gate

import (
	"crypto/sha256"
	"crypto/subtle"
)

// SecretEqual reports whether presented matches expected without leaking
// the position of the first differing byte or the length of either value
// through timing. Both inputs are reduced to fixed-size digests before the
// constant-time comparison, so an empty or truncated presented value takes
// the same path as any other mismatch.
func SecretEqual(presented, expected string) bool {
	p := sha256.Sum256([]byte(presented))
	e := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(p[:], e[:]) == 1
}
