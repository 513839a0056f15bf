package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Bucket(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }

	assert.Zero(t, rl.reserve("remotive", 2))
	assert.Zero(t, rl.reserve("remotive", 2))

	wait := rl.reserve("remotive", 2)
	assert.InDelta(t, 30*time.Second, wait, float64(time.Millisecond))

	// Buckets are per provider.
	assert.Zero(t, rl.reserve("remoteok", 2))

	now = now.Add(30 * time.Second)
	assert.Zero(t, rl.reserve("remotive", 2))
}

func TestRateLimiter_WaitUnlimited(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Wait(context.Background(), "job_room", 0))
	}
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	rl := NewRateLimiter()
	require.NoError(t, rl.Wait(context.Background(), "remotive", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx, "remotive", 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
