package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jmtsu/supablog/internal/ratelimit"
	"github.com/jmtsu/supablog/internal/respond"
)

// RateLimit consults the limiter before the handler runs. Rejections name the
// exceeded limit and carry a Retry-After hint.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Check(r.Context(), clientAddr(r))
			if !decision.Allowed {
				retryAfter := int(decision.RetryAfter / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				respond.Error(w, http.StatusTooManyRequests,
					fmt.Sprintf("Rate limit exceeded: %s", decision.Exceeded))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr identifies the client by remote network address, the same key
// the shared counter store partitions quotas by across instances.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
