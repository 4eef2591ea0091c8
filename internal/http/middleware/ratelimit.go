// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket limiter keyed per
// client, with opportunistic eviction of idle buckets. Replays served by
// Idempotency never reach it because that middleware aborts the chain.
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to its bucket identity.
type KeyFunc func(*gin.Context) string

// KeyByClientIP buckets by client IP.
func KeyByClientIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps    rate.Limit
	burst  int
	keyFn  KeyFunc
	exempt []string

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter builds a limiter. burst <= 0 is coerced to 1 and a nil keyFn
// buckets by client IP. Requests whose path starts with one of exempt
// (e.g. "/health", "/metrics") are never limited.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc, exempt ...string) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		exempt:   exempt,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// limiter returns the bucket for key. Every 5000 lookups it first evicts
// buckets idle for at least ttl, including the one being fetched.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (rl *RateLimiter) isExempt(path string) bool {
	for _, p := range rl.exempt {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Handler returns the middleware. Limited requests get 429 with Retry-After.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.isExempt(c.Request.URL.Path) || rl.limiter(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
