package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FixedWindowLimiter caps requests per key inside fixed windows. Admin
// login uses this with a key of ip-email so one address cannot walk an
// email through the whole window budget.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string]*windowEntry
}

type windowEntry struct {
	windowStart time.Time
	count       int
}

func NewFixedWindowLimiter(window time.Duration, max int) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		window:  window,
		max:     max,
		entries: map[string]*windowEntry{},
	}
}

// Allow reports whether the key has budget left in its current window
// and, when it does not, how long until the window resets.
func (l *FixedWindowLimiter) Allow(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.windowStart) >= l.window {
		l.entries[key] = &windowEntry{windowStart: now, count: 1}
		return true, 0
	}
	if entry.count >= l.max {
		return false, entry.windowStart.Add(l.window).Sub(now)
	}
	entry.count++
	return true, 0
}

// Sweep drops entries whose window has long ended. Called from the
// periodic maintenance loop.
func (l *FixedWindowLimiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.entries {
		if now.Sub(entry.windowStart) >= 2*l.window {
			delete(l.entries, key)
		}
	}
}

func (l *FixedWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// IPLimiter manages one token-bucket limiter per client IP for general
// API traffic.
type IPLimiter struct {
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	limiters map[string]*ipEntry
}

type ipEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func NewIPLimiter(r rate.Limit, burst int) *IPLimiter {
	return &IPLimiter{
		rate:     r,
		burst:    burst,
		limiters: map[string]*ipEntry{},
	}
}

func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()
	l.mu.Unlock()
	return entry.limiter.Allow()
}

func (l *IPLimiter) Sweep(maxIdle time.Duration) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastAccess) > maxIdle {
			delete(l.limiters, ip)
		}
	}
}
