package mid

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/aerodados/rab-proxy/pkg/resilience"
)

// KeyFunc identifies the client a request is rate limited as.
type KeyFunc func(*http.Request) string

// ClientIP keys requests by remote IP. With trustProxy set, the first
// X-Forwarded-For entry wins, which is only safe behind a proxy that sets it.
func ClientIP(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}

// RateLimit rejects requests beyond the limiter's budget with 429.
func RateLimit(l *resilience.Limiter, key KeyFunc) Middleware {
	limit := strconv.Itoa(l.Limit())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			ok, retryAfter := l.Allow(k)
			w.Header().Set("RateLimit-Limit", limit)
			if !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Muitas requisições. Tente novamente em instantes.",
				})
				return
			}
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(l.Remaining(k)))
			next.ServeHTTP(w, r)
		})
	}
}
