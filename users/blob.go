package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ggoodman/mcp-userdir/storage"
)

// DefaultKey is the document key used when none is configured.
const DefaultKey = "users.json"

// BlobRepository keeps the whole record list as one JSON array document in a
// storage.Storage backend. Every mutation re-reads and rewrites the full
// document.
//
// When the backend implements storage.Updater the read-modify-write of
// Append runs inside Update. Otherwise two concurrent Append calls race: both
// may observe the same length, receive the same identifier, and the last
// write wins.
type BlobRepository struct {
	st     storage.Storage
	key    string
	logger *slog.Logger
}

var _ Repository = (*BlobRepository)(nil)

// BlobOption configures a BlobRepository.
type BlobOption func(*BlobRepository)

// WithKey sets the document key. Default: DefaultKey.
func WithKey(key string) BlobOption {
	return func(r *BlobRepository) {
		if key != "" {
			r.key = key
		}
	}
}

// WithLogger sets the logger used to report recovered read failures.
func WithLogger(l *slog.Logger) BlobOption {
	return func(r *BlobRepository) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewBlobRepository returns a repository storing its document in st.
func NewBlobRepository(st storage.Storage, opts ...BlobOption) *BlobRepository {
	r := &BlobRepository{st: st, key: DefaultKey, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the document key.
func (r *BlobRepository) Key() string { return r.key }

// List returns all records. A missing or unreadable document is an empty
// list; a document that is not a JSON array of users is an error.
func (r *BlobRepository) List(ctx context.Context) ([]User, error) {
	item, err := r.st.Get(ctx, r.key)
	if err != nil {
		r.logger.Debug("users document unreadable; treating as empty",
			slog.String("key", r.key),
			slog.String("err", err.Error()),
		)
		return []User{}, nil
	}
	if item == nil {
		return []User{}, nil
	}
	return Decode(item.Data)
}

// Append assigns the next sequential identifier to c and rewrites the
// document.
func (r *BlobRepository) Append(ctx context.Context, c Candidate) (int, error) {
	if up, ok := r.st.(storage.Updater); ok {
		var id int
		err := up.Update(ctx, r.key, func(current []byte) ([]byte, error) {
			all, err := Decode(current)
			if err != nil {
				return nil, err
			}
			id = len(all) + 1
			return Encode(append(all, c.WithID(id)))
		})
		if err != nil {
			return 0, fmt.Errorf("append user: %w", err)
		}
		return id, nil
	}

	all, err := r.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("append user: %w", err)
	}
	id := len(all) + 1
	data, err := Encode(append(all, c.WithID(id)))
	if err != nil {
		return 0, fmt.Errorf("append user: %w", err)
	}
	if err := r.st.Set(ctx, r.key, data); err != nil {
		return 0, fmt.Errorf("append user: %w", err)
	}
	return id, nil
}

// Decode parses a stored document. Empty or whitespace-only input is an
// empty list.
func Decode(data []byte) ([]User, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []User{}, nil
	}
	var out []User
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

// Encode renders records the way they are persisted: a two-space indented
// JSON array without a trailing newline.
func Encode(records []User) ([]byte, error) {
	if records == nil {
		records = []User{}
	}
	return json.MarshalIndent(records, "", "  ")
}
