// Package watchlist persists pinned tokens and runs the standing
// monitor that re-evaluates them against their baselines.
//
// All mutations of the persisted collection flow through one queue
// goroutine, restoring the at-most-one-writer invariant the plain
// read-modify-write on the shared store cannot give: a user's add or
// remove can no longer be lost to a concurrent poll-cycle write.
package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/storage"
)

// MaxItems caps the watchlist size.
const MaxItems = 50

var (
	// ErrDuplicate rejects adding an address already watched.
	ErrDuplicate = errors.New("watchlist: token already watched")
	// ErrFull rejects adds beyond the item cap.
	ErrFull = errors.New("watchlist: item cap reached")
	// ErrNotWatched is returned when removing or updating an absent item.
	ErrNotWatched = errors.New("watchlist: token not watched")
	// ErrClosed is returned for mutations after Close.
	ErrClosed = errors.New("watchlist: store closed")
)

type mutation struct {
	apply func(items []domain.WatchlistItem) ([]domain.WatchlistItem, error)
	done  chan error
}

// Store owns the persisted watchlist collection.
type Store struct {
	store     storage.KV
	mutations chan mutation
	closed    chan struct{}
}

// NewStore creates the store and starts its writer goroutine.
func NewStore(kv storage.KV) *Store {
	s := &Store{
		store:     kv,
		mutations: make(chan mutation),
		closed:    make(chan struct{}),
	}
	go s.writer()
	return s
}

// writer serializes every read-modify-write of the collection.
func (s *Store) writer() {
	for {
		select {
		case <-s.closed:
			return
		case m := <-s.mutations:
			ctx := context.Background()
			items, err := s.load(ctx)
			if err != nil {
				m.done <- err
				continue
			}
			updated, err := m.apply(items)
			if err != nil {
				m.done <- err
				continue
			}
			m.done <- s.persist(ctx, updated)
		}
	}
}

func (s *Store) mutate(ctx context.Context, apply func([]domain.WatchlistItem) ([]domain.WatchlistItem, error)) error {
	m := mutation{apply: apply, done: make(chan error, 1)}
	select {
	case s.mutations <- m:
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-m.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Items returns the current watchlist. A storage failure degrades to an
// empty list.
func (s *Store) Items(ctx context.Context) []domain.WatchlistItem {
	items, err := s.load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("watchlist read failed, returning empty")
		return nil
	}
	return items
}

// Add pins a token. Duplicates (by normalized chain+address) and adds
// beyond the cap are rejected. The baseline, when the caller has a fresh
// record, is captured now; otherwise the first poll adopts one.
func (s *Store) Add(ctx context.Context, item domain.WatchlistItem) error {
	return s.mutate(ctx, func(items []domain.WatchlistItem) ([]domain.WatchlistItem, error) {
		for _, existing := range items {
			if existing.Address.Key() == item.Address.Key() {
				return nil, ErrDuplicate
			}
		}
		if len(items) >= MaxItems {
			return nil, ErrFull
		}
		return append(items, item), nil
	})
}

// Remove unpins a token.
func (s *Store) Remove(ctx context.Context, addr domain.Address) error {
	return s.mutate(ctx, func(items []domain.WatchlistItem) ([]domain.WatchlistItem, error) {
		for i, existing := range items {
			if existing.Address.Key() == addr.Key() {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrNotWatched
	})
}

// Update replaces the stored item with the same address key.
func (s *Store) Update(ctx context.Context, item domain.WatchlistItem) error {
	return s.mutate(ctx, func(items []domain.WatchlistItem) ([]domain.WatchlistItem, error) {
		for i, existing := range items {
			if existing.Address.Key() == item.Address.Key() {
				items[i] = item
				return items, nil
			}
		}
		return nil, ErrNotWatched
	})
}

// Close stops the writer; later mutations return ErrClosed.
func (s *Store) Close() {
	close(s.closed)
}

func (s *Store) load(ctx context.Context) ([]domain.WatchlistItem, error) {
	raw, err := s.store.Get(ctx, storage.KeyWatchlist)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading watchlist: %w", err)
	}
	var items []domain.WatchlistItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding watchlist: %w", err)
	}
	return items, nil
}

func (s *Store) persist(ctx context.Context, items []domain.WatchlistItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding watchlist: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyWatchlist, raw); err != nil {
		return fmt.Errorf("persisting watchlist: %w", err)
	}
	return nil
}
