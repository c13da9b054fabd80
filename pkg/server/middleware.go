package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// corsMiddleware answers preflight requests and tags responses for allowed
// origins. An empty list allows any origin; the web API is read-only.
func corsMiddleware(allowedOrigins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.ToLower(o)] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && (len(allowed) == 0 || allowed[strings.ToLower(origin)]) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window counter per client IP.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*rateWindow
}

type rateWindow struct {
	count int
	ends  time.Time
}

// newRateLimiter allows requestsPerMinute per IP; zero or less disables the limit.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	return &rateLimiter{
		limit:   requestsPerMinute,
		window:  time.Minute,
		windows: make(map[string]*rateWindow),
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	ok, _ := rl.take(ip, time.Now())
	return ok
}

// take counts one request from ip. When the window is used up it also
// returns how long until the next one opens.
func (rl *rateLimiter) take(ip string, now time.Time) (bool, time.Duration) {
	if rl.limit <= 0 {
		return true, 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[ip]
	if !ok || !now.Before(w.ends) {
		rl.windows[ip] = &rateWindow{count: 1, ends: now.Add(rl.window)}
		return true, 0
	}
	w.count++
	if w.count > rl.limit {
		return false, w.ends.Sub(now)
	}
	return true, 0
}

// cleanup forgets windows that have closed.
func (rl *rateLimiter) cleanup() {
	now := time.Now()
	rl.mu.Lock()
	for ip, w := range rl.windows {
		if !now.Before(w.ends) {
			delete(rl.windows, ip)
		}
	}
	rl.mu.Unlock()
}

func rateLimitMiddleware(rl *rateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ok, wait := rl.take(ip, time.Now()); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
