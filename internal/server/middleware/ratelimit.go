package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jsacademy/backend/internal/httputil"
	"jsacademy/backend/internal/logging"
)

const (
	// pruneEvery is how many admitted keys pass between opportunistic sweeps of idle buckets.
	pruneEvery = 1024
	// DefaultIdleTTL is how long a bucket survives without traffic before a sweep drops it.
	DefaultIdleTTL = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client: the learner ID when authenticated, otherwise the peer IP.
type RateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	rate        rate.Limit
	burst       int
	onReject    func()
	nowF        func() time.Time
	trustedHops int
	idleTTL     time.Duration
	calls       int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns a limiter allowing rps requests per second with the given burst per client.
// rps <= 0 disables limiting. onReject may be nil.
func NewRateLimiter(rps float64, burst int, onReject func()) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		onReject: onReject,
		nowF:     time.Now,
		idleTTL:  DefaultIdleTTL,
	}
}

// TrustProxyHops sets how many reverse proxies append to X-Forwarded-For ahead of the server.
// With 0 (the default) anonymous clients are keyed on the connection's remote address.
func (rl *RateLimiter) TrustProxyHops(n int) *RateLimiter {
	if n < 0 {
		n = 0
	}
	rl.trustedHops = n
	return rl
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.nowF()
	rl.calls++
	if rl.calls%pruneEvery == 0 {
		rl.pruneLocked(now.Add(-rl.idleTTL))
	}
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Handler returns the rate limiting middleware handler. Rejected requests get 429 with Retry-After.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.rate <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		key, ok := GetLearnerID(r.Context())
		if !ok {
			key = "ip:" + PeerIP(r, rl.trustedHops)
		}
		if !rl.allow(key) {
			if rl.onReject != nil {
				rl.onReject()
			}
			logging.FromContext(r.Context()).WithField("path", r.URL.Path).Info("rate limit exceeded")
			retry := int(1/float64(rl.rate)) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			httputil.WriteError(w, r, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Prune drops limiters idle for longer than idle and returns how many were removed.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.pruneLocked(rl.nowF().Add(-idle))
}

func (rl *RateLimiter) pruneLocked(cutoff time.Time) int {
	n := 0
	for k, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
