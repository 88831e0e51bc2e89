// Package cache is the TTL-bounded result cache between the scanner and
// its callers. Entries live in memory and are mirrored to the persistent
// store as the "cache" collection; losing a concurrent mirror write is
// acceptable because entries are self-healing and TTL-bounded.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/storage"
)

// Defaults per the pipeline contract.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 500
)

// Entry is one cached scan result.
type Entry struct {
	Data      domain.TokenRecord `json:"data"`
	Timestamp time.Time          `json:"timestamp"`
}

// Manager owns the cache collection. Staleness is evaluated lazily at
// read time; Set runs a capacity cleanup when the entry count exceeds
// the cap.
type Manager struct {
	mu         sync.Mutex
	entries    map[string]Entry
	ttl        time.Duration
	maxEntries int
	store      storage.KV
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithMaxEntries overrides the capacity cap.
func WithMaxEntries(n int) Option {
	return func(m *Manager) { m.maxEntries = n }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a cache over the given store, loading any persisted
// collection. A store read failure degrades to an empty cache.
func NewManager(ctx context.Context, store storage.KV, opts ...Option) *Manager {
	m := &Manager{
		entries:    make(map[string]Entry),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		store:      store,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if raw, err := store.Get(ctx, storage.KeyCache); err == nil {
		if err := json.Unmarshal(raw, &m.entries); err != nil {
			log.Warn().Err(err).Msg("discarding corrupt persisted cache")
			m.entries = make(map[string]Entry)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Warn().Err(err).Msg("cache load failed, starting empty")
	}
	return m
}

// Get returns the cached record for key, or nil when absent or stale.
func (m *Manager) Get(key string) *domain.TokenRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil
	}
	if m.now().Sub(entry.Timestamp) >= m.ttl {
		return nil
	}
	record := entry.Data
	return &record
}

// Set stores a record under key and persists the collection. When the
// entry count exceeds the cap a cleanup pass drops expired entries and
// trims the remainder oldest-first.
func (m *Manager) Set(ctx context.Context, key string, record domain.TokenRecord) {
	m.mu.Lock()
	m.entries[key] = Entry{Data: record, Timestamp: m.now()}
	if len(m.entries) > m.maxEntries {
		m.cleanupLocked()
	}
	m.mu.Unlock()

	m.persist(ctx)
}

// Remove drops one entry.
func (m *Manager) Remove(ctx context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()

	m.persist(ctx)
}

// Cleanup drops expired entries and enforces the cap, then persists.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.Lock()
	m.cleanupLocked()
	m.mu.Unlock()

	m.persist(ctx)
}

// Clear empties the cache and removes the persisted collection.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()

	if err := m.store.Remove(ctx, storage.KeyCache); err != nil {
		log.Warn().Err(err).Msg("clearing persisted cache failed")
	}
}

// Len returns the current entry count, expired entries included.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// cleanupLocked removes TTL-expired entries first, then trims remaining
// entries oldest-timestamp-first until under the cap.
func (m *Manager) cleanupLocked() {
	now := m.now()
	for key, entry := range m.entries {
		if now.Sub(entry.Timestamp) >= m.ttl {
			delete(m.entries, key)
		}
	}
	if len(m.entries) <= m.maxEntries {
		return
	}

	type aged struct {
		key string
		ts  time.Time
	}
	ordered := make([]aged, 0, len(m.entries))
	for key, entry := range m.entries {
		ordered = append(ordered, aged{key, entry.Timestamp})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ts.Before(ordered[j].ts) })

	for _, a := range ordered {
		if len(m.entries) <= m.maxEntries {
			break
		}
		delete(m.entries, a.key)
	}
}

func (m *Manager) persist(ctx context.Context) {
	m.mu.Lock()
	raw, err := json.Marshal(m.entries)
	m.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("marshaling cache for persistence failed")
		return
	}
	if err := m.store.Set(ctx, storage.KeyCache, raw); err != nil {
		log.Warn().Err(err).Msg("persisting cache failed")
	}
}
