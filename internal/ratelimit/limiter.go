// Package ratelimit throttles requests per client address, with independent
// budgets for read, write and moderation traffic.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example/blog-comments/internal/platform/api"
	"github.com/example/blog-comments/internal/platform/httpserver"
)

// maxBuckets bounds the per-client bucket map. When full, the stalest
// bucket is evicted before a new client is admitted.
const maxBuckets = 10000

// Limiter is a named per-key token bucket. One instance per budget.
type Limiter struct {
	name  string
	rate  float64 // tokens per second
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// New creates a limiter for the named budget with the given refill rate
// (req/s) and burst size.
func New(name string, rate float64, burst int) *Limiter {
	return &Limiter{
		name:    name,
		rate:    rate,
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

// Name returns the budget name this limiter enforces.
func (l *Limiter) Name() string { return l.name }

// Allow reports whether the key has budget left, consuming one token if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxBuckets {
			l.evictStalest()
		}
		b = &bucket{tokens: float64(l.burst), last: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	b.tokens += elapsed * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictStalest drops the bucket with the oldest last-seen time. Caller
// holds the lock.
func (l *Limiter) evictStalest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, b := range l.buckets {
		if first || b.last.Before(oldest) {
			oldestKey, oldest = k, b.last
			first = false
		}
	}
	if !first {
		delete(l.buckets, oldestKey)
	}
}

// ClientKey derives the throttling key from the request: the first
// X-Forwarded-For hop if present, otherwise RemoteAddr, with any port
// stripped so ephemeral ports never split one client into many.
func ClientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		addr = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// Middleware rejects over-budget requests with 429 before they reach the
// store, naming the exhausted budget in the response.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientKey(r)) {
			rid := httpserver.RequestIDFromContext(r.Context())
			api.RateLimited(w, "RATE_LIMITED", "too many requests", rid,
				map[string]any{"budget": l.name})
			return
		}
		next.ServeHTTP(w, r)
	})
}
