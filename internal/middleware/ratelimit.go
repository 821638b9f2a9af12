package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit returns per-API-key rate limiting middleware using token
// buckets. Each key's bucket fills at rps tokens/sec up to burst tokens;
// a request with an empty bucket is rejected with 429. Enhancement runs
// fan out into paid provider calls, so this is the outer cost guard.
//
// The limiter map is shared across request goroutines — a plain mutex is
// the right tool for a small shared map, not channels.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		// Set by the auth middleware; absent means auth didn't run (e.g. a
		// route group without auth), so let the request through.
		key, exists := c.Get("api_key")
		if !exists {
			c.Next()
			return
		}

		apiKey := key.(string)

		mu.Lock()
		limiter, ok := limiters[apiKey]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[apiKey] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
