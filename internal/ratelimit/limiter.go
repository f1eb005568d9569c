// Package ratelimit provides per-IP rate limiting for the public booking
// endpoint.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	MaxPerWindow int           // Max public booking attempts per IP per window
	Window       time.Duration // Sliding window size
	Clock        Clock         // nil uses real time
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxPerWindow: 30,
		Window:       time.Hour,
	}
}

type entry struct {
	count   int
	firstAt time.Time
}

// Limiter tracks booking attempts per client IP over a sliding window.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.Mutex
	byIP   map[string]*entry
}

func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	clock := config.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{
		config: config,
		clock:  clock,
		byIP:   make(map[string]*entry),
	}
}

// Allow records an attempt from ip and reports whether it is within limits.
func (l *Limiter) Allow(ip string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byIP[ip]
	if !ok || now.Sub(e.firstAt) >= l.config.Window {
		l.byIP[ip] = &entry{count: 1, firstAt: now}
		return true
	}
	e.count++
	return e.count <= l.config.MaxPerWindow
}

// ClientIP extracts the caller's IP, honoring X-Forwarded-For from a fronting
// proxy.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
