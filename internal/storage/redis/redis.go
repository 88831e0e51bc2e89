// Package redis backs the KV capability with a redis instance so the
// monitor daemon survives restarts with its watchlist and cache intact.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rugscan/rugscan/internal/storage"
)

// keyPrefix namespaces all pipeline keys in a shared redis.
const keyPrefix = "rugscan:"

// Store implements storage.KV over a redis client.
type Store struct {
	client *goredis.Client
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Store{client: client}, nil
}

// NewFromClient wraps an existing client, used by tests.
func NewFromClient(client *goredis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.StorageError{Op: "get", Key: key, Err: err}
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return &storage.StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return &storage.StorageError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
