package ratelimit

import (
	"sync"
	"time"
)

// Actions known to the limiter. Unknown actions fall back to a default bucket.
const (
	ActionSendMessage       = "send_message"
	ActionStartConversation = "start_conversation"
	ActionCreateRFQ         = "create_rfq"
	ActionTyping            = "typing"
)

type tokenBucket struct {
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
	mutex      sync.Mutex
}

func newTokenBucket(maxTokens, refillRate int, refillTime time.Duration) *tokenBucket {
	return &tokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		refillTime: refillTime,
		lastRefill: time.Now(),
	}
}

func (tb *tokenBucket) allow() (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()

	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed/tb.refillTime) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	nextRefill := tb.lastRefill.Add(tb.refillTime)
	return false, nextRefill.Sub(now)
}

// Limiter tracks a token bucket per user and action.
type Limiter struct {
	buckets map[string]*tokenBucket
	mutex   sync.RWMutex
}

func NewLimiter() *Limiter {
	return &Limiter{
		buckets: make(map[string]*tokenBucket),
	}
}

// Allow consumes a token for the user/action pair, reporting whether the
// action may proceed and, when it may not, how long until the next token.
func (rl *Limiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			switch action {
			case ActionSendMessage:
				// 20 messages per minute
				bucket = newTokenBucket(20, 1, 3*time.Second)
			case ActionStartConversation:
				// 10 new conversations per hour
				bucket = newTokenBucket(10, 1, 6*time.Minute)
			case ActionCreateRFQ:
				// 10 RFQs per hour
				bucket = newTokenBucket(10, 1, 6*time.Minute)
			case ActionTyping:
				// 30 typing events per minute
				bucket = newTokenBucket(30, 1, 2*time.Second)
			default:
				bucket = newTokenBucket(20, 1, 3*time.Second)
			}
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.allow()
}

// Cleanup drops buckets idle for over an hour.
func (rl *Limiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastRefill) > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup on a fixed interval.
func (rl *Limiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			rl.Cleanup()
		}
	}()
}
