package server

import (
	"container/list"
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SecurityHeadersMiddleware adds security headers to all responses.
// Compiled pages carry their styles and behavior scripts inline, and the
// playground shows previews in a same-origin frame.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; "+
					"script-src 'self' 'unsafe-inline'; "+
					"style-src 'self' 'unsafe-inline' https:; "+
					"img-src 'self' data: https:; "+
					"font-src 'self' data: https:; "+
					"connect-src 'self'; "+
					"frame-ancestors 'self'")

			next.ServeHTTP(w, r)
		})
	}
}

// evictionLogInterval is the minimum time between eviction log messages.
const evictionLogInterval = 30 * time.Second

// ipLimiter tracks a per-IP token bucket and its position in the LRU list.
type ipLimiter struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token bucket per client IP. At most maxIPs clients
// are tracked; beyond that the least recently seen client is forgotten.
type RateLimiter struct {
	rps    rate.Limit
	burst  int
	maxIPs int

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recent, back = oldest

	// Eviction logging state (guarded by mu)
	lastEvictLog time.Time
	evictCount   int

	done chan struct{}
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine, which
// runs until ctx is cancelled.
func NewRateLimiter(ctx context.Context, rps float64, burst, maxIPs int) *RateLimiter {
	if maxIPs <= 0 {
		maxIPs = 10000
	}
	rl := &RateLimiter{
		rps:    rate.Limit(rps),
		burst:  burst,
		maxIPs: maxIPs,
		items:  make(map[string]*list.Element),
		order:  list.New(),
		done:   make(chan struct{}),
	}
	go rl.cleanupLoop(ctx, 5*time.Minute, 10*time.Minute)
	return rl
}

// Done is closed once the cleanup goroutine has exited.
func (rl *RateLimiter) Done() <-chan struct{} {
	return rl.done
}

// cleanupLoop drops clients idle for longer than maxIdle.
func (rl *RateLimiter) cleanupLoop(ctx context.Context, every, maxIdle time.Duration) {
	defer close(rl.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Now(), maxIdle)
		case <-ctx.Done():
			return
		}
	}
}

// sweep removes stale entries. LRU order tracks access recency, not
// lastSeen, so every entry is inspected.
func (rl *RateLimiter) sweep(now time.Time, maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for e := rl.order.Back(); e != nil; {
		lim := e.Value.(*ipLimiter)
		prev := e.Prev()
		if now.Sub(lim.lastSeen) > maxIdle {
			rl.order.Remove(e)
			delete(rl.items, lim.ip)
		}
		e = prev
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if elem, exists := rl.items[ip]; exists {
		rl.order.MoveToFront(elem)
		lim := elem.Value.(*ipLimiter)
		lim.lastSeen = now
		return lim.limiter.Allow()
	}

	if rl.order.Len() >= rl.maxIPs {
		if back := rl.order.Back(); back != nil {
			evicted := back.Value.(*ipLimiter)
			rl.order.Remove(back)
			delete(rl.items, evicted.ip)
			rl.evictCount++
			if now.Sub(rl.lastEvictLog) >= evictionLogInterval {
				log.Printf("[RateLimit] Evicted %d least-recent IP(s) (at capacity: %d IPs)", rl.evictCount, rl.maxIPs)
				rl.lastEvictLog = now
				rl.evictCount = 0
			}
		}
	}

	lim := &ipLimiter{
		ip:       ip,
		limiter:  rate.NewLimiter(rl.rps, rl.burst),
		lastSeen: now,
	}
	rl.items[ip] = rl.order.PushFront(lim)
	return lim.limiter.Allow()
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.order.Len()
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP from the request.
// It only trusts X-Forwarded-For / X-Real-IP when the immediate peer is a
// loopback or private address (i.e., behind a reverse proxy).
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peerIP := net.ParseIP(host)
	trustedProxy := peerIP != nil && (peerIP.IsLoopback() || peerIP.IsPrivate())

	if trustedProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	if peerIP != nil {
		return peerIP.String()
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
