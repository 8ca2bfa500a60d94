package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// RateLimit returns middleware that bounds requests per remote host over a
// sliding window. A nil limiter disables limiting; a limiter failure fails
// open, so a Redis outage degrades to unlimited rather than down.
func RateLimit(limiter domain.RateLimiter, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			allowed, err := limiter.Allow(r.Context(), "http:"+host, limit, window)
			if err != nil {
				logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
