package httpx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedLimiterRefillAndSweep(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	k := NewKeyedLimiter(RateLimitConfig{Requests: 2, Window: time.Minute, Burst: 2})
	k.now = func() time.Time { return clock }
	require.Equal(t, time.Minute, k.idle)

	ok, _ := k.Allow("a")
	require.True(t, ok)
	ok, _ = k.Allow("a")
	require.True(t, ok)

	ok, wait := k.Allow("a")
	require.False(t, ok)
	require.InDelta(t, 30*time.Second, wait, float64(time.Millisecond))

	clock = clock.Add(30 * time.Second)
	ok, _ = k.Allow("a")
	require.True(t, ok, "one token refilled")

	ok, _ = k.Allow("b")
	require.True(t, ok)
	require.Equal(t, 2, k.Len())

	// Both buckets go idle; the next call sweeps them before adding its own.
	clock = clock.Add(2 * time.Minute)
	ok, _ = k.Allow("c")
	require.True(t, ok)
	require.Equal(t, 1, k.Len())
}
