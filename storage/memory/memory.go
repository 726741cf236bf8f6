// Package memory provides an in-memory implementation of the storage
// interface. Updates are serialized by a mutex, which makes it the atomic
// counterpart of the file backend in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ggoodman/mcp-userdir/storage"
)

// Storage implements storage.Storage and storage.Updater in memory.
type Storage struct {
	mu    sync.RWMutex
	items map[string]*storage.Item
}

var (
	_ storage.Storage = (*Storage)(nil)
	_ storage.Updater = (*Storage)(nil)
)

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{items: make(map[string]*storage.Item)}
}

// Get retrieves a copy of the document stored under key.
func (s *Storage) Get(_ context.Context, key string) (*storage.Item, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &storage.Item{Data: clone(item.Data), UpdatedAt: item.UpdatedAt}, nil
}

// Set stores a copy of data under key.
func (s *Storage) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	s.items[key] = &storage.Item{Data: clone(data), UpdatedAt: time.Now()}
	s.mu.Unlock()
	return nil
}

// Update runs fn while holding the write lock.
func (s *Storage) Update(_ context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []byte
	if item, ok := s.items[key]; ok {
		current = clone(item.Data)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	s.items[key] = &storage.Item{Data: clone(next), UpdatedAt: time.Now()}
	return nil
}

// Close drops all documents.
func (s *Storage) Close() error {
	s.mu.Lock()
	s.items = make(map[string]*storage.Item)
	s.mu.Unlock()
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
