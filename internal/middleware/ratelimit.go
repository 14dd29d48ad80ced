package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tokeneth/eth-gateway/internal/config"
)

// RateLimit caps the gateway's overall request rate with a token
// bucket, shared across all callers.
func RateLimit(cfg config.RateLimitConfig) Middleware {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
