// Package storage defines the asynchronous key-value capability the
// pipeline persists through. Values are JSON-serializable blobs; every
// operation can fail and callers degrade to defaults instead of
// crashing.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = errors.New("storage: key not found")

// Well-known collection keys.
const (
	KeySettings  = "settings"
	KeyWatchlist = "watchlist"
	KeyCache     = "cache"
)

// KV is the abstract persistent store consumed by the pipeline.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// StorageError wraps a persistence failure with the operation and key so
// log lines can tell collections apart.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
