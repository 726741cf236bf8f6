// Package storage defines the whole-document backends that hold the user
// record list. A document is addressed by a key and is always read and
// written as a single blob.
package storage

import (
	"context"
	"errors"
	"time"
)

// Storage defines the primary interface for document storage.
type Storage interface {
	// Get retrieves the document stored under key.
	// Returns a nil Item if the key doesn't exist.
	// Returns error only for legitimate storage system failures.
	Get(ctx context.Context, key string) (*Item, error)

	// Set replaces the document stored under key, creating it if needed.
	Set(ctx context.Context, key string, data []byte) error

	// Close closes the storage backend and releases resources
	Close() error
}

// Updater is implemented by backends that can run a read-modify-write cycle
// atomically. fn receives the current document (nil when absent) and returns
// the replacement. An error from fn aborts the update without writing.
type Updater interface {
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}

// Item represents a stored document with metadata
type Item struct {
	Data      []byte    // The stored data
	UpdatedAt time.Time // When the document was last written (zero if unknown)
}

// Error types
var (
	// ErrConflict is returned by Updater implementations when the document
	// was modified concurrently and the update was discarded.
	ErrConflict = errors.New("storage: concurrent modification")
)
