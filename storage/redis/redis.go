// Package redis provides a Redis-based implementation of the storage.Storage
// interface. Each document lives in a hash with a "data" and an
// "updated_at" field.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ggoodman/mcp-userdir/storage"
	"github.com/redis/go-redis/v9"
)

const (
	fieldData      = "data"
	fieldUpdatedAt = "updated_at"
)

// Config contains configuration options for the Redis storage
type Config struct {
	// Client is the Redis client instance
	Client *redis.Client

	// KeyPrefix is the prefix for all Redis keys
	// Default: "mcp:userdir:"
	KeyPrefix string
}

// Storage implements the storage.Storage interface using Redis
type Storage struct {
	client    *redis.Client
	keyPrefix string
}

// New creates a new Redis-based storage instance.
func New(config Config) (*Storage, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	// Apply defaults
	if config.KeyPrefix == "" {
		config.KeyPrefix = "mcp:userdir:"
	}

	return &Storage{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Get retrieves the document stored under key.
func (s *Storage) Get(ctx context.Context, key string) (*storage.Item, error) {
	redisKey := s.keyPrefix + key

	vals, err := s.client.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", redisKey, err)
	}
	data, ok := vals[fieldData]
	if !ok {
		return nil, nil // Key doesn't exist
	}
	return &storage.Item{Data: []byte(data), UpdatedAt: parseUnixNano(vals[fieldUpdatedAt])}, nil
}

// Set replaces the document stored under key.
func (s *Storage) Set(ctx context.Context, key string, data []byte) error {
	redisKey := s.keyPrefix + key
	if err := s.client.HSet(ctx, redisKey, fieldData, data, fieldUpdatedAt, time.Now().UnixNano()).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", redisKey, err)
	}
	return nil
}

// Update runs fn inside an optimistic WATCH/MULTI transaction. If another
// client writes the key between the read and the commit, the update is
// discarded and storage.ErrConflict is returned.
func (s *Storage) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	redisKey := s.keyPrefix + key

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, redisKey, fieldData).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to get key %s: %w", redisKey, err)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, redisKey, fieldData, next, fieldUpdatedAt, time.Now().UnixNano())
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, redisKey)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("update key %s: %w", redisKey, storage.ErrConflict)
	}
	return err
}

// Close closes the storage backend and releases resources
func (s *Storage) Close() error {
	return s.client.Close()
}

func parseUnixNano(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Compile-time interface checks
var (
	_ storage.Storage = (*Storage)(nil)
	_ storage.Updater = (*Storage)(nil)
)
