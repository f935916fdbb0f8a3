package util

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by everything reading one request stream.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter refills r tokens per second up to a burst of b.
func NewLimiter(r float64, b int) *Limiter {
	if b < 1 {
		b = 1
	}
	return &Limiter{inner: rate.NewLimiter(rate.Limit(r), b)}
}

// Allow takes n tokens if the bucket holds them. A false result leaves
// the bucket untouched.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}
