package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/storage/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, clock *fakeClock, opts ...Option) *Manager {
	t.Helper()
	opts = append(opts, WithClock(clock.Now))
	return NewManager(context.Background(), memory.New(), opts...)
}

func record(score int) domain.TokenRecord {
	return domain.TokenRecord{
		Address:   domain.NewAddress(domain.ChainEthereum, "0x1234567890123456789012345678901234567890"),
		Score:     score,
		RiskLevel: domain.RiskWarning,
	}
}

func TestManager_GetWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	m.Set(context.Background(), "k", record(72))

	clock.Advance(4 * time.Minute)
	got := m.Get("k")
	require.NotNil(t, got)
	assert.Equal(t, 72, got.Score)
}

func TestManager_GetAfterTTLMisses(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	m.Set(context.Background(), "k", record(72))

	clock.Advance(6 * time.Minute)
	assert.Nil(t, m.Get("k"))
}

func TestManager_Remove(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	m.Set(context.Background(), "k", record(10))
	m.Remove(context.Background(), "k")
	assert.Nil(t, m.Get("k"))
}

func TestManager_CapacityEvictsOldestFirst(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock, WithMaxEntries(3))

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		m.Set(ctx, fmt.Sprintf("k%d", i), record(i))
		clock.Advance(time.Second)
	}

	assert.Nil(t, m.Get("k0"), "oldest entry should be evicted")
	assert.NotNil(t, m.Get("k3"))
	assert.LessOrEqual(t, m.Len(), 3)
}

func TestManager_CleanupDropsExpiredRegardlessOfCap(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock, WithMaxEntries(100))

	ctx := context.Background()
	m.Set(ctx, "old", record(1))
	clock.Advance(10 * time.Minute)
	m.Set(ctx, "fresh", record(2))

	m.Cleanup(ctx)
	assert.Equal(t, 1, m.Len())
	assert.NotNil(t, m.Get("fresh"))
}

func TestManager_PersistsAcrossRestart(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first := NewManager(ctx, store)
	first.Set(ctx, "k", record(55))

	second := NewManager(ctx, store)
	got := second.Get("k")
	require.NotNil(t, got)
	assert.Equal(t, 55, got.Score)
}

func TestManager_ClearRemovesPersistedCollection(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	m := NewManager(ctx, store)
	m.Set(ctx, "k", record(55))
	m.Clear(ctx)

	assert.Nil(t, m.Get("k"))
	assert.Equal(t, 0, NewManager(ctx, store).Len())
}
