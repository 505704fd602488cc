package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/edvin/serverdir/internal/api/response"
)

// GetRealIP attempts to determine the client's real IP address, trusting
// headers like CF-Connecting-IP or X-Forwarded-For if configured to do so.
func GetRealIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
			return cf
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

// RateLimiter keeps one token bucket per client key and evicts buckets
// that have been idle long enough to be full again.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	limit    rate.Limit
	burst    int
	lastSwep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const sweepInterval = 5 * time.Minute

// NewRateLimiter allows ratePerMin requests per minute per key with the
// given burst.
func NewRateLimiter(ratePerMin, burst int) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*client),
		limit:    rate.Limit(float64(ratePerMin) / 60.0),
		burst:    burst,
		lastSwep: time.Now(),
	}
}

// Allow reports whether the key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSwep) > sweepInterval {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > 2*sweepInterval {
				delete(rl.clients, k)
			}
		}
		rl.lastSwep = now
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.Allow()
}

// SubmitRateLimit applies a hard per-IP rate limit to heartbeat
// submissions. It rejects requests with 429 when the limit is exceeded.
func SubmitRateLimit(rl *RateLimiter, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(GetRealIP(r, trustProxy)) {
				response.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many submissions from this address")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
