// Package file stores documents as plain files below a root directory.
//
// Writes overwrite the whole file and are not atomic; there is no locking
// between concurrent writers. The package deliberately does not implement
// storage.Updater.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ggoodman/mcp-userdir/storage"
)

// ErrInvalidKey is returned for keys that are empty, absolute or escape the root.
var ErrInvalidKey = errors.New("file storage: invalid key")

// Storage implements storage.Storage on the local file system.
type Storage struct {
	root string
}

var _ storage.Storage = (*Storage)(nil)

// New returns a Storage rooted at dir. The directory does not need to exist
// yet; it is created on the first write.
func New(dir string) (*Storage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", dir, err)
	}
	return &Storage{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Storage) Root() string { return s.root }

// Path returns the absolute file path backing key.
func (s *Storage) Path(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Get reads the file for key. A missing file yields a nil item.
func (s *Storage) Get(_ context.Context, key string) (*storage.Item, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	item := &storage.Item{Data: data}
	if fi, err := os.Stat(p); err == nil {
		item.UpdatedAt = fi.ModTime()
	}
	return item, nil
}

// Set ensures the parent directory exists and overwrites the file.
func (s *Storage) Set(_ context.Context, key string, data []byte) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// Close is a no-op.
func (s *Storage) Close() error { return nil }

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	clean := path.Clean(key)
	return clean == key && clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}
