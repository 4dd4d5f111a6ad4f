package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/AdhubOrg/rebase-bot/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	PerMinute int // Allowed requests per minute per key
	Burst     int // Token bucket burst size
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		PerMinute: 60,
		Burst:     10,
	}
}

// Limiter provides in-memory per-key token bucket rate limiting. State is
// process-local; there is no shared store behind it.
type Limiter struct {
	config Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a new in-memory rate limiter
func New(config Config) *Limiter {
	if config.PerMinute <= 0 {
		config.PerMinute = DefaultConfig().PerMinute
	}
	if config.Burst <= 0 {
		config.Burst = DefaultConfig().Burst
	}

	return &Limiter{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a request for the given key may proceed now
func (l *Limiter) Allow(key string) bool {
	return l.limiterFor(key).Allow()
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		perSecond := rate.Limit(float64(l.config.PerMinute) / 60.0)
		lim = rate.NewLimiter(perSecond, l.config.Burst)
		l.limiters[key] = lim
	}
	return lim
}

// Middleware creates Gin middleware that limits requests per client IP
func Middleware(l *Limiter, metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			metrics.IncrementRateLimitBlock()
			c.Header("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
