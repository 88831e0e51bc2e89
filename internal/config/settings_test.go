package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/storage"
	"github.com/rugscan/rugscan/internal/storage/memory"
)

func TestSettingsStore_FirstReadReturnsDefaults(t *testing.T) {
	s := NewSettingsStore(memory.New())

	got := s.Get(context.Background())
	assert.Equal(t, domain.DefaultSettings(), got)
}

func TestSettingsStore_PartialUpdatePersists(t *testing.T) {
	kv := memory.New()
	s := NewSettingsStore(kv)
	ctx := context.Background()

	updated, err := s.Update(ctx, map[string]any{"monitorIntervalMinutes": 5})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.MonitorIntervalMinutes)
	assert.True(t, updated.AutoScan, "fields absent from the patch keep defaults")

	// A second store over the same KV sees the persisted value.
	again := NewSettingsStore(kv).Get(ctx)
	assert.Equal(t, 5, again.MonitorIntervalMinutes)
}

func TestSettingsStore_BooleanFalseUpdateSticks(t *testing.T) {
	s := NewSettingsStore(memory.New())
	ctx := context.Background()

	updated, err := s.Update(ctx, map[string]any{"autoScan": false})
	require.NoError(t, err)
	assert.False(t, updated.AutoScan)
	assert.False(t, s.Get(ctx).AutoScan)
}

func TestSettingsStore_UpdateNormalizesOutOfRange(t *testing.T) {
	s := NewSettingsStore(memory.New())
	ctx := context.Background()

	updated, err := s.Update(ctx, map[string]any{
		"riskThreshold":          250,
		"monitorIntervalMinutes": -3,
		"defaultChain":           "dogechain",
	})
	require.NoError(t, err)

	def := domain.DefaultSettings()
	assert.Equal(t, def.RiskThreshold, updated.RiskThreshold)
	assert.Equal(t, def.MonitorIntervalMinutes, updated.MonitorIntervalMinutes)
	assert.Equal(t, def.DefaultChain, updated.DefaultChain)
}

func TestSettingsStore_CorruptStoredValueDegradesToDefaults(t *testing.T) {
	kv := memory.New()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, storage.KeySettings, []byte("{not json")))

	got := NewSettingsStore(kv).Get(ctx)
	assert.Equal(t, domain.DefaultSettings(), got)
}
