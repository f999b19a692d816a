package api

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitConfig throttles every request the server handles. A zero rate
// disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return &rateLimiter{}
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)}
}

func (rl *rateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
