package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreRejectsBadTTL(t *testing.T) {
	_, err := NewStore(Options{DefaultTTL: 0})
	assert.Error(t, err)

	_, err = NewStore(Options{DefaultTTL: -time.Second})
	assert.Error(t, err)
}

func TestStoreSetGet(t *testing.T) {
	store, err := NewStore(Options{DefaultTTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	got, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = store.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	store, err := NewStore(Options{DefaultTTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStoreJSONRoundTrip(t *testing.T) {
	store, err := NewStore(Options{DefaultTTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	type payload struct {
		Country string `json:"country"`
		Allowed bool   `json:"allowed"`
	}

	require.NoError(t, store.SetJSON(ctx, "k", payload{Country: "NO", Allowed: true}, time.Minute))

	var got payload
	ok, err := store.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "NO", got.Country)
	assert.True(t, got.Allowed)

	ok, err = store.GetJSON(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreNamespaceIsolation(t *testing.T) {
	store, err := NewStore(Options{DefaultTTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	a := store.Namespace("a")
	b := store.Namespace("b")

	require.NoError(t, a.Set(ctx, "k", 1, time.Minute))
	require.NoError(t, b.Set(ctx, "k", 2, time.Minute))

	got, ok := a.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	got, ok = b.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestStoreTTL(t *testing.T) {
	store, err := NewStore(Options{DefaultTTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))

	ttl, ok := store.TTL(ctx, "k")
	require.True(t, ok)
	assert.Greater(t, ttl, 59*time.Minute)

	_, ok = store.TTL(ctx, "missing")
	assert.False(t, ok)
}

func TestStoreClear(t *testing.T) {
	store, err := NewStore(Options{DefaultTTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	geo := store.Namespace("geo")
	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, geo.Set(ctx, "k", "v", time.Minute))

	store.Clear(ctx)

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)

	// Namespaces share the backend, so Clear empties them too.
	_, ok = geo.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStoreDefaultTTLFallback(t *testing.T) {
	store, err := NewStore(Options{DefaultTTL: 20 * time.Millisecond})
	require.NoError(t, err)
	ctx := context.Background()

	// ttl<=0 uses the default rather than storing forever.
	require.NoError(t, store.Set(ctx, "k", "v", 0))
	time.Sleep(50 * time.Millisecond)

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}
