package middlewarex

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimit applies a fixed-window per-client limit backed by redis.
// The funnel front end fires sync calls from timers, so a runaway
// client can hammer the API; the window keeps that bounded without
// per-instance state. A nil client disables limiting.
func RateLimit(rdb *redis.Client, perMin int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil || perMin <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := fmt.Sprintf("rl:%s:%d", ip, time.Now().Unix()/60)

			n, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				// Redis being down must not take the API with it.
				log.Warn().Err(err).Msg("rate limit: redis unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if n == 1 {
				rdb.Expire(r.Context(), key, time.Minute)
			}
			if n > int64(perMin) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
