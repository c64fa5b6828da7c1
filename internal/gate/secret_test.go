package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretEqual(t *testing.T) {
	assert.True(t, SecretEqual("abc123", "abc123"))
	assert.False(t, SecretEqual("abc124", "abc123"))
	assert.False(t, SecretEqual("", "abc123"))
	assert.False(t, SecretEqual("abc123", ""))
	assert.True(t, SecretEqual("", ""))
}

func TestSecretEqualLengthIndependent(t *testing.T) {
	// Mismatched lengths must compare without shortcutting.
	assert.False(t, SecretEqual("short", "a-much-longer-secret-value"))
	assert.False(t, SecretEqual("a-much-longer-secret-value", "short"))
}
