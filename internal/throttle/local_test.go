package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiterBurstThenDeny(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "u1:room")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := l.Allow(ctx, "u1:room")
	require.NoError(t, err)
	assert.False(t, ok)

	// other keys are independent
	ok, err = l.Allow(ctx, "u2:room")
	require.NoError(t, err)
	assert.True(t, ok)

	// one attempt refills every window/attempts
	now = now.Add(20 * time.Second)
	ok, err = l.Allow(ctx, "u1:room")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLimiterSweepDropsIdleKeys(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	_, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)

	now = now.Add(4 * time.Minute)
	l.sweep()
	assert.Empty(t, l.visitors)
}
