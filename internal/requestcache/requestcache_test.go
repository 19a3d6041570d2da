package requestcache

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCompute_ComputesOnMiss(t *testing.T) {
	ctx := context.Background()
	cache := New[string](time.Minute, 100)

	calls := 0
	value, err := cache.GetOrCompute(ctx, "k", func(context.Context) (string, error) {
		calls++
		return "computed", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "computed", value)
	assert.Equal(t, 1, calls)
}

func TestGetOrCompute_ServesFromCacheWithinTTL(t *testing.T) {
	ctx := context.Background()
	cache := New[string](time.Minute, 100)

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "computed", nil
	}

	_, err := cache.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)

	value, err := cache.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)

	assert.Equal(t, "computed", value)
	assert.Equal(t, 1, calls)
}

func TestGetOrCompute_DistinctKeysDoNotShareEntries(t *testing.T) {
	ctx := context.Background()
	cache := New[string](time.Minute, 100)

	for _, key := range []string{"a", "b"} {
		value, err := cache.GetOrCompute(ctx, key, func(context.Context) (string, error) {
			return "value-" + key, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "value-"+key, value)
	}
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	cache := New[string](time.Minute, 100)

	calls := 0
	boom := errors.New("remote failure")

	_, err := cache.GetOrCompute(ctx, "k", func(context.Context) (string, error) {
		calls++
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	// the failure must not be memoized: the next call computes again
	value, err := cache.GetOrCompute(ctx, "k", func(context.Context) (string, error) {
		calls++
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", value)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	// Use very short TTL for testing
	cache := New[string](100*time.Millisecond, 100)

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "computed", nil
	}

	_, err := cache.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)

	// Wait for TTL to expire
	time.Sleep(150 * time.Millisecond)

	_, err = cache.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidate_RemovesEntry(t *testing.T) {
	ctx := context.Background()
	cache := New[string](time.Minute, 100)

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "computed", nil
	}

	_, err := cache.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)

	cache.Invalidate("k")

	_, err = cache.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestStats_RecordsHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	cache := New[string](time.Minute, 100)

	compute := func(context.Context) (string, error) { return "v", nil }

	_, _ = cache.GetOrCompute(ctx, "k", compute)
	_, _ = cache.GetOrCompute(ctx, "k", compute)

	hits, misses := cache.Stats()
	assert.GreaterOrEqual(t, hits, uint64(1))
	assert.GreaterOrEqual(t, misses, uint64(1))
}

func TestKey_StableAcrossInsertionOrder(t *testing.T) {
	a := url.Values{}
	a.Set("fields", "pm2.5")
	a.Set("sensor_index", "42")

	b := url.Values{}
	b.Set("sensor_index", "42")
	b.Set("fields", "pm2.5")

	assert.Equal(t, Key("sensors/42", a), Key("sensors/42", b))
}

func TestKey_DistinguishesOperationsAndArguments(t *testing.T) {
	params := url.Values{}
	params.Set("sensor_index", "42")

	other := url.Values{}
	other.Set("sensor_index", "43")

	assert.NotEqual(t, Key("sensors/42", params), Key("sensors/42/history", params))
	assert.NotEqual(t, Key("sensors", params), Key("sensors", other))
}

func TestKey_EscapesValues(t *testing.T) {
	tricky := url.Values{}
	tricky.Set("fields", "a=b&c")

	plain := url.Values{}
	plain.Set("fields", "a")
	plain.Set("c", "")

	assert.NotEqual(t, Key("sensors", tricky), Key("sensors", plain))
}
