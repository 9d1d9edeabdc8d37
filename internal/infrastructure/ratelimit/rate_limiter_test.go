package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowExhaustsBucket(t *testing.T) {
	limiter := NewLimiter()

	for i := 0; i < 20; i++ {
		allowed, _ := limiter.Allow("user-1", ActionSendMessage)
		assert.True(t, allowed, "send %d should be within the budget", i+1)
	}

	allowed, retryAfter := limiter.Allow("user-1", ActionSendMessage)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter.Seconds(), 0.0)
}

func TestBucketsAreIsolatedPerUserAndAction(t *testing.T) {
	limiter := NewLimiter()

	for i := 0; i < 20; i++ {
		limiter.Allow("user-1", ActionSendMessage)
	}

	// Another user is unaffected.
	allowed, _ := limiter.Allow("user-2", ActionSendMessage)
	assert.True(t, allowed)

	// Same user, different action, unaffected.
	allowed, _ = limiter.Allow("user-1", ActionCreateRFQ)
	assert.True(t, allowed)
}

func TestUnknownActionGetsDefaultBucket(t *testing.T) {
	limiter := NewLimiter()

	allowed, _ := limiter.Allow("user-1", "unmapped")
	assert.True(t, allowed)
}

func TestCleanupKeepsActiveBuckets(t *testing.T) {
	limiter := NewLimiter()

	limiter.Allow("user-1", ActionSendMessage)
	limiter.Cleanup()

	// The bucket was just used; cleanup must not reset its state.
	for i := 0; i < 19; i++ {
		limiter.Allow("user-1", ActionSendMessage)
	}
	allowed, _ := limiter.Allow("user-1", ActionSendMessage)
	assert.False(t, allowed)
}
