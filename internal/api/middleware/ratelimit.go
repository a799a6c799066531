package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows a fixed number of requests per key within a sliding
// window.
type RateLimiter struct {
	requests int
	window   time.Duration
	clients  map[string]*clientWindow
	mu       sync.RWMutex
	stop     chan struct{}
	once     sync.Once
}

type clientWindow struct {
	timestamps []time.Time
	mu         sync.Mutex
}

func NewRateLimiter(requests int, windowSeconds int) *RateLimiter {
	if requests <= 0 {
		requests = 100
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	rl := &RateLimiter{
		requests: requests,
		window:   time.Duration(windowSeconds) * time.Second,
		clients:  make(map[string]*clientWindow),
		stop:     make(chan struct{}),
	}
	go rl.sweep(time.Minute)
	return rl
}

// Stop ends the background sweep.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// sweep drops keys idle for two windows.
func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, client := range rl.clients {
				client.mu.Lock()
				n := len(client.timestamps)
				if n == 0 || now.Sub(client.timestamps[n-1]) > rl.window*2 {
					delete(rl.clients, key)
				}
				client.mu.Unlock()
			}
			rl.mu.Unlock()
		}
	}
}

// Allow records a request for key if it fits in the window. It returns the
// requests left and when the window next frees a slot.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	return rl.allowAt(key, time.Now())
}

func (rl *RateLimiter) allowAt(key string, now time.Time) (bool, int, time.Time) {
	rl.mu.RLock()
	client, exists := rl.clients[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if client, exists = rl.clients[key]; !exists {
			client = &clientWindow{timestamps: make([]time.Time, 0, rl.requests)}
			rl.clients[key] = client
		}
		rl.mu.Unlock()
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	windowStart := now.Add(-rl.window)
	keep := 0
	for keep < len(client.timestamps) && !client.timestamps[keep].After(windowStart) {
		keep++
	}
	client.timestamps = client.timestamps[keep:]

	if len(client.timestamps) >= rl.requests {
		return false, 0, client.timestamps[0].Add(rl.window)
	}

	client.timestamps = append(client.timestamps, now)
	return true, rl.requests - len(client.timestamps), client.timestamps[0].Add(rl.window)
}

// RateLimit limits by client IP.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return limit(limiter, clientIP)
}

// RateLimitByUser limits by authenticated user, falling back to client IP.
// It must run after Auth.
func RateLimitByUser(limiter *RateLimiter) func(http.Handler) http.Handler {
	return limit(limiter, func(r *http.Request) string {
		if email := GetUserEmail(r.Context()); email != "" {
			return "user:" + email
		}
		return clientIP(r)
	})
}

func limit(limiter *RateLimiter, keyOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, resetTime := limiter.Allow(keyOf(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(resetTime).Seconds())+1, 10))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
