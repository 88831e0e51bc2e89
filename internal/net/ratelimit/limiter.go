// Package ratelimit bounds outbound provider requests to a fixed number
// per rolling window. Callers over the bound suspend until capacity
// frees up; requests are never dropped.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces at most capacity requests per window. Built on a
// token bucket refilled at capacity/window with burst = capacity, so a
// cold limiter admits a full window's worth immediately and delays the
// excess instead of rejecting it.
type Limiter struct {
	limiter  *rate.Limiter
	capacity int
	window   time.Duration
}

// NewLimiter creates a limiter admitting capacity requests per window.
func NewLimiter(capacity int, window time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rps := rate.Limit(float64(capacity) / window.Seconds())
	return &Limiter{
		limiter:  rate.NewLimiter(rps, capacity),
		capacity: capacity,
		window:   window,
	}
}

// Wait blocks until a request slot is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed immediately, consuming a
// slot if so.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Tokens returns the currently available slot count.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}

// Capacity returns the configured per-window bound.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Manager holds one limiter per provider plus a shared global limiter
// that every request passes through regardless of provider.
type Manager struct {
	mu       sync.RWMutex
	global   *Limiter
	perProv  map[string]*Limiter
	defaults struct {
		capacity int
		window   time.Duration
	}
}

// NewManager creates a manager whose global limiter admits capacity
// requests per window. Providers without an explicit limiter share only
// the global bound.
func NewManager(capacity int, window time.Duration) *Manager {
	m := &Manager{
		global:  NewLimiter(capacity, window),
		perProv: make(map[string]*Limiter),
	}
	m.defaults.capacity = capacity
	m.defaults.window = window
	return m
}

// SetProvider installs a dedicated limiter for one provider.
func (m *Manager) SetProvider(name string, capacity int, window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perProv[name] = NewLimiter(capacity, window)
}

// Wait blocks until both the global bound and the provider's own bound
// (if any) admit the request.
func (m *Manager) Wait(ctx context.Context, provider string) error {
	if err := m.global.Wait(ctx); err != nil {
		return err
	}
	m.mu.RLock()
	l, ok := m.perProv[provider]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}

// Global returns the shared limiter.
func (m *Manager) Global() *Limiter {
	return m.global
}
