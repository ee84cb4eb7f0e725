// ratelimit.go - Sliding-window rate limiter keyed by client IP.
package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"doc-convert/internal/convert"
)

// rateLimiter admits at most limit requests per client within any window.
// Idle clients are pruned lazily, at most once per window, so the limiter
// owns no goroutine.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string][]time.Time // admitted request times, oldest first
	limit     int
	window    time.Duration
	lastPrune time.Time
	now       func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// allow admits a request from ip. When the client is over its limit it
// returns false and how long until the oldest admitted request leaves the
// window.
func (rl *rateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastPrune) >= rl.window {
		rl.prune(cutoff)
		rl.lastPrune = now
	}

	times := expire(rl.clients[ip], cutoff)
	if len(times) >= rl.limit {
		rl.clients[ip] = times
		return false, times[0].Sub(cutoff)
	}
	rl.clients[ip] = append(times, now)
	return true, 0
}

func (rl *rateLimiter) prune(cutoff time.Time) {
	for ip, times := range rl.clients {
		if len(expire(times, cutoff)) == 0 {
			delete(rl.clients, ip)
		}
	}
}

// expire drops the leading entries at or before cutoff.
func expire(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// tracked reports how many clients currently hold window state.
func (rl *rateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeRateLimited answers 429 with Retry-After rounded up to whole seconds.
func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSONError(w, r, http.StatusTooManyRequests, convert.KindClientInput, "rate limit exceeded, try again later")
}
