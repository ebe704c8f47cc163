// Per-client rate limiting for stream upgrades.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows maxRate requests per client in each fixed window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxRate int
	period  time.Duration
	now     func() time.Time

	stop chan struct{}
	once sync.Once
}

type window struct {
	used  int
	start time.Time
}

// NewRateLimiter creates a limiter and starts its stale-entry sweeper.
// Call Close to stop the sweeper.
func NewRateLimiter(maxRate int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		maxRate: maxRate,
		period:  period,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Allow consumes one request for key and reports whether it was within the
// limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.windows[key] = &window{used: 1, start: now}
		return rl.maxRate > 0
	}
	if w.used < rl.maxRate {
		w.used++
		return true
	}
	return false
}

// RetryAfter returns whole seconds until key's window resets.
func (rl *RateLimiter) RetryAfter(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok {
		return 0
	}
	remaining := rl.period - rl.now().Sub(w.start)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Close stops the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep() {
	t := time.NewTicker(rl.period)
	defer t.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-t.C:
			rl.mu.Lock()
			now := rl.now()
			for k, w := range rl.windows {
				if now.Sub(w.start) > 2*rl.period {
					delete(rl.windows, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware answers 429 once a client exceeds the limit.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
