package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurst(t *testing.T) {
	tb := NewTokenBucket(60, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow(), "bucket should be exhausted")
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, tb.Wait(ctx))
}

func TestTokenBucketUnlimitedRate(t *testing.T) {
	tb := NewTokenBucket(0, 1)
	for i := 0; i < 100; i++ {
		require.True(t, tb.Allow())
	}
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	assert.True(t, l.Allow())
	assert.NoError(t, l.Wait(context.Background()))
}

func TestParseUsage(t *testing.T) {
	header := http.Header{}
	header.Set(HeaderAppUsage, `{"call_count":28,"total_time":25,"total_cputime":12}`)
	header.Set(HeaderBusinessUseCase, `{"1784":[{"type":"instagram","call_count":91,"total_cputime":3,"total_time":5,"estimated_time_to_regain_access":2}]}`)

	usage, ok := ParseUsage(header)
	require.True(t, ok)
	assert.Equal(t, 91.0, usage.Max())
	assert.Equal(t, 2, usage.EstimatedTimeToRegainAccess)
}

func TestParseUsageIgnoresGarbage(t *testing.T) {
	header := http.Header{}
	header.Set(HeaderAppUsage, `not json`)

	_, ok := ParseUsage(header)
	assert.False(t, ok)
}

func TestUsageThrottleBelowThreshold(t *testing.T) {
	throttle := NewUsageThrottle(90, time.Minute)
	header := http.Header{}
	header.Set(HeaderAppUsage, `{"call_count":50}`)

	assert.Zero(t, throttle.Observe(header))
	assert.NoError(t, throttle.Wait(context.Background()))
	assert.Equal(t, 50.0, throttle.Last().CallCount)
}

func TestUsageThrottlePausesAboveThreshold(t *testing.T) {
	throttle := NewUsageThrottle(90, time.Minute)
	header := http.Header{}
	header.Set(HeaderAppUsage, `{"call_count":95}`)

	assert.Equal(t, time.Minute, throttle.Observe(header))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, throttle.Wait(ctx), context.DeadlineExceeded)
}

func TestUsageThrottlePrefersRegainEstimate(t *testing.T) {
	throttle := NewUsageThrottle(80, time.Second)
	header := http.Header{}
	header.Set(HeaderBusinessUseCase, `{"1":[{"call_count":100,"estimated_time_to_regain_access":3}]}`)

	assert.Equal(t, 3*time.Minute, throttle.Observe(header))
}

func TestUsageThrottleDisabled(t *testing.T) {
	throttle := NewUsageThrottle(0, time.Minute)
	header := http.Header{}
	header.Set(HeaderAppUsage, `{"call_count":100}`)

	assert.Zero(t, throttle.Observe(header))
}
