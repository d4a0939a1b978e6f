package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestFixedWindowLimiterEnforcesCap(t *testing.T) {
	limiter := NewFixedWindowLimiter(15*time.Minute, 3)
	now := time.Now()

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("ip-admin@example.com", now)
		assert.True(t, allowed, "attempt %d should pass", i+1)
	}
	allowed, retryAfter := limiter.Allow("ip-admin@example.com", now)
	assert.False(t, allowed)
	assert.Equal(t, 15*time.Minute, retryAfter)
}

func TestFixedWindowLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewFixedWindowLimiter(15*time.Minute, 1)
	now := time.Now()

	allowed, _ := limiter.Allow("a", now)
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("b", now)
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("a", now)
	assert.False(t, allowed)
}

func TestFixedWindowLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewFixedWindowLimiter(15*time.Minute, 1)
	now := time.Now()

	limiter.Allow("key", now)
	allowed, _ := limiter.Allow("key", now)
	assert.False(t, allowed)

	allowed, _ = limiter.Allow("key", now.Add(15*time.Minute))
	assert.True(t, allowed)
}

func TestFixedWindowLimiterSweep(t *testing.T) {
	limiter := NewFixedWindowLimiter(15*time.Minute, 1)
	now := time.Now()
	limiter.Allow("stale", now)
	limiter.Allow("fresh", now.Add(29*time.Minute))

	limiter.Sweep(now.Add(30 * time.Minute))
	assert.Equal(t, 1, limiter.Len())
}

func TestIPLimiterBurstThenDeny(t *testing.T) {
	limiter := NewIPLimiter(rate.Limit(1.0/60.0), 2)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	// a different address has its own bucket
	assert.True(t, limiter.Allow("10.0.0.2"))
}
