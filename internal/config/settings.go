package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/storage"
)

// SettingsStore reads and mutates the persisted user settings. Readers
// always get defaults merged in; a storage failure degrades to pure
// defaults rather than failing the caller's operation.
type SettingsStore struct {
	store storage.KV
}

// NewSettingsStore creates a settings store over the KV capability.
func NewSettingsStore(store storage.KV) *SettingsStore {
	return &SettingsStore{store: store}
}

// Get returns the current settings with defaults merged in.
func (s *SettingsStore) Get(ctx context.Context) domain.Settings {
	settings := domain.DefaultSettings()

	raw, err := s.store.Get(ctx, storage.KeySettings)
	if errors.Is(err, storage.ErrNotFound) {
		return settings
	}
	if err != nil {
		log.Warn().Err(err).Msg("settings read failed, using defaults")
		return settings
	}
	// Unmarshal over defaults so absent fields keep their default.
	if err := json.Unmarshal(raw, &settings); err != nil {
		log.Warn().Err(err).Msg("discarding corrupt persisted settings")
		return domain.DefaultSettings()
	}
	return settings.Normalize()
}

// Update applies a partial update as a JSON merge over the current
// settings and persists the result, returning the new settings.
func (s *SettingsStore) Update(ctx context.Context, updates map[string]any) (domain.Settings, error) {
	current := s.Get(ctx)

	patch, err := json.Marshal(updates)
	if err != nil {
		return current, fmt.Errorf("encoding settings update: %w", err)
	}
	if err := json.Unmarshal(patch, &current); err != nil {
		return current, fmt.Errorf("applying settings update: %w", err)
	}
	current = current.Normalize()

	raw, err := json.Marshal(current)
	if err != nil {
		return current, fmt.Errorf("encoding settings: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeySettings, raw); err != nil {
		return current, fmt.Errorf("persisting settings: %w", err)
	}
	return current, nil
}
