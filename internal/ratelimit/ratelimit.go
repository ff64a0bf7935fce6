// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration
type Config struct {
	RPS           float64       // Sustained requests per second per key
	Burst         int           // Requests allowed at once
	IdleTTL       time.Duration // Keys unused for this long are forgotten
	CleanupPeriod time.Duration // How often to forget idle keys
}

func (c *Config) Validate() error {
	if c.RPS <= 0 {
		return fmt.Errorf("rps must be positive")
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1")
	}
	if c.IdleTTL <= 0 || c.CleanupPeriod <= 0 {
		return fmt.Errorf("idle ttl and cleanup period must be positive")
	}
	return nil
}

// DefaultConfig allows a send about every second with short bursts.
func DefaultConfig() *Config {
	return &Config{
		RPS:           1,
		Burst:         5,
		IdleTTL:       30 * time.Minute,
		CleanupPeriod: 10 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key.
type KeyedLimiter struct {
	config  *Config
	mu      sync.Mutex
	entries map[string]*entry
	stopCh  chan struct{}
	once    sync.Once
}

// NewKeyedLimiter starts the cleanup goroutine; call Close to stop it.
func NewKeyedLimiter(config *Config) *KeyedLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	l := &KeyedLimiter{
		config:  config,
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Info describes the outcome of one Allow call.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Allow takes one token for key if available.
func (l *KeyedLimiter) Allow(key string) Info {
	now := time.Now()
	lim := l.get(key, now)

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Info{Limit: l.config.Burst, RetryAfter: delay}
	}
	return Info{
		Allowed:   true,
		Limit:     l.config.Burst,
		Remaining: int(lim.TokensAt(now)),
	}
}

func (l *KeyedLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	e := &entry{limiter: rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst), lastSeen: now}
	l.entries[key] = e
	return e.limiter
}

// Len reports how many keys are tracked.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			l.cleanup(now)
		case <-l.stopCh:
			return
		}
	}
}

func (l *KeyedLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) > l.config.IdleTTL {
			delete(l.entries, key)
		}
	}
}

// Close stops the cleanup goroutine
func (l *KeyedLimiter) Close() {
	l.once.Do(func() { close(l.stopCh) })
}

// GetClientIP extracts the real client IP from request
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
