// Package ratelimit throttles the unauthenticated auth endpoints so the
// login password cannot be brute-forced from a single address.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	DefaultRequestsPerMinute = 10
	DefaultWindowDuration    = time.Minute
)

type ipBucket struct {
	count     int64
	resetTime time.Time
}

// AuthLimiter is a fixed-window per-IP rate limiter.
type AuthLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket

	limit  int64
	window time.Duration
}

// NewAuthLimiter creates a limiter with the default window and limit.
func NewAuthLimiter() *AuthLimiter {
	return &AuthLimiter{
		buckets: make(map[string]*ipBucket),
		limit:   DefaultRequestsPerMinute,
		window:  DefaultWindowDuration,
	}
}

// Middleware rejects requests from addresses that exceeded the window limit.
func (l *AuthLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}

func (l *AuthLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	bucket, exists := l.buckets[ip]
	if !exists || now.After(bucket.resetTime) {
		l.buckets[ip] = &ipBucket{
			count:     1,
			resetTime: now.Add(l.window),
		}
		return true
	}

	if bucket.count >= l.limit {
		return false
	}

	bucket.count++
	return true
}

// Cleanup drops expired buckets.
func (l *AuthLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for ip, bucket := range l.buckets {
		if now.After(bucket.resetTime) {
			delete(l.buckets, ip)
		}
	}
}

// StartCleanup periodically evicts expired buckets in the background.
func (l *AuthLimiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			l.Cleanup()
		}
	}()
}
