package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"flowboard/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	limiters    sync.Map // map[string]*rate.Limiter
	limit       rate.Limit
	burst       int
	perMinute   int
	mu          sync.Mutex
	lastCleanup time.Time
	now         func() time.Time
}

// NewRateLimiter creates a limiter from configuration
func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	perMinute := max(cfg.RequestsPerMinute, 1)
	return &RateLimiter{
		limit:       rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:       max(cfg.Burst, 1),
		perMinute:   perMinute,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.limit, rl.burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle buckets, at most once every five minutes
func (rl *RateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.now().Sub(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = rl.now()

	rl.limiters.Range(func(key, value any) bool {
		// a full bucket has not been used recently
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Middleware answers 429 once a client IP runs out of tokens
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		l := rl.limiter(key)

		if !l.Allow() {
			reservation := l.Reserve()
			delay := reservation.Delay()
			reservation.Cancel()

			c.Header("Retry-After", strconv.Itoa(max(int(delay.Seconds()), 1)))
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.perMinute))
			log.Ctx(c.Request.Context()).Warn().
				Str("client_ip", key).
				Str("path", c.Request.URL.Path).
				Msg("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}

		c.Next()
	}
}
