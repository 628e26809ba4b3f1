// Package ratelimit throttles login attempts.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hearthsocial/hearth/internal/app/system/apperr"
)

// Limiter allows at most limit hits per key in a fixed window that opens
// with the key's first hit. Safe for concurrent use.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]bucket

	stop chan struct{}
	once sync.Once
}

type bucket struct {
	hits  int
	until time.Time
}

func (b bucket) live(now time.Time) bool { return !now.After(b.until) }

// New returns a limiter and starts its sweeper, which drops expired buckets
// every two windows. Close stops the sweeper.
func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]bucket),
		stop:    make(chan struct{}),
	}
	go l.sweep(2 * window)
	return l
}

// Allow records a hit for key and reports whether it fits in the window.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !b.live(now) {
		l.buckets[key] = bucket{hits: 1, until: now.Add(l.window)}
		return true
	}
	if b.hits >= l.limit {
		return false
	}
	b.hits++
	l.buckets[key] = b
	return true
}

// Remaining reports how many hits key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !b.live(now) {
		return l.limit
	}
	return max(l.limit-b.hits, 0)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-t.C:
			l.mu.Lock()
			for k, b := range l.buckets {
				if !b.live(now) {
					delete(l.buckets, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Close stops the sweeper. Allow keeps working; expired buckets are then
// only replaced, never dropped.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

// ClientIP returns the first X-Forwarded-For hop, else X-Real-IP, else the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// LoginLimiter rate-limits login attempts on two axes:
// per client IP (spraying many accounts) and per identifier (guessing one account).
type LoginLimiter struct {
	ipLimiter *Limiter
	idLimiter *Limiter
}

// NewLoginLimiter allows perMinute attempts per IP per minute and half as
// many (at least one) per identifier per five minutes.
func NewLoginLimiter(perMinute int) *LoginLimiter {
	if perMinute < 1 {
		perMinute = 10
	}
	perID := perMinute / 2
	if perID < 1 {
		perID = 1
	}
	return NewLoginLimiterWithConfig(perMinute, time.Minute, perID, 5*time.Minute)
}

// NewLoginLimiterWithConfig creates a login limiter with custom limits.
func NewLoginLimiterWithConfig(ipLimit int, ipDuration time.Duration, idLimit int, idDuration time.Duration) *LoginLimiter {
	return &LoginLimiter{
		ipLimiter: New(ipLimit, ipDuration),
		idLimiter: New(idLimit, idDuration),
	}
}

// Check records a login attempt for identifier (username or email) and
// returns ErrTooManyRequests when either limit is exhausted.
func (ll *LoginLimiter) Check(r *http.Request, identifier string) error {
	if !ll.ipLimiter.Allow(ClientIP(r)) {
		return apperr.ErrTooManyRequests.WithMessage("Too many login attempts. Please wait a minute before trying again.")
	}
	if key := identifierKey(identifier); key != "" && !ll.idLimiter.Allow(key) {
		return apperr.ErrTooManyRequests.WithMessage("Too many login attempts for this account. Please wait a few minutes.")
	}
	return nil
}

// ResetIdentifier clears the per-account window after a successful login.
func (ll *LoginLimiter) ResetIdentifier(identifier string) {
	if key := identifierKey(identifier); key != "" {
		ll.idLimiter.Reset(key)
	}
}

// Close stops both cleanup goroutines.
func (ll *LoginLimiter) Close() {
	ll.ipLimiter.Close()
	ll.idLimiter.Close()
}

func identifierKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
