// Package ratelimit provides in-memory per-IP rate limiting for the API.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/clinscore/trs/internal/errors"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMin int // per-IP request budget per minute
	Burst          int // burst capacity
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerMin: 60,
		Burst:          10,
	}
}

// Limiter provides per-IP token-bucket rate limiting
type Limiter struct {
	config   Config
	mu       sync.Mutex
	limiters map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a rate limiter and starts a janitor that drops limiters
// for IPs idle longer than an hour.
func New(config Config) *Limiter {
	l := &Limiter{
		config:   config,
		limiters: make(map[string]*entry),
	}

	go l.janitor()

	return l
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		for ip, e := range l.limiters {
			if time.Since(e.lastSeen) > time.Hour {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Allow reports whether a request from ip is within budget.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	e, ok := l.limiters[ip]
	if !ok {
		e = &entry{
			limiter: rate.NewLimiter(rate.Limit(float64(l.config.RequestsPerMin)/60.0), l.config.Burst),
		}
		l.limiters[ip] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()

	return e.limiter.Allow()
}

// Middleware rejects requests over the per-IP budget with 429.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			appErr := apperrors.NewRateLimitError("60s")
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
				"error":    appErr.Error(),
				"category": appErr.Category,
			})
			return
		}
		c.Next()
	}
}
