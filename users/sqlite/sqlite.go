// Package sqlite implements users.Repository using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggoodman/mcp-userdir/users"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store implements users.Repository backed by a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ users.Repository = (*Store)(nil)

// Open creates a Store using a local SQLite file at dbPath.
// A single shared connection serializes all writers, so Append never hands
// out the same identifier twice.
func Open(dbPath string, opts ...StoreOption) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s, nil
}

// Init creates the users table. Safe to call multiple times.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		address TEXT NOT NULL,
		phone TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// List returns all users ordered by id.
func (s *Store) List(ctx context.Context) ([]users.User, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, address, phone FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []users.User{}
	for rows.Next() {
		var u users.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.Phone); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	s.logger.Debug("sqlite: list users", "count", len(out), "duration", time.Since(start))
	return out, nil
}

// Append inserts c with id = count+1 inside a transaction.
func (s *Store) Append(ctx context.Context, c users.Candidate) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	id := n + 1
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, name, email, address, phone) VALUES (?, ?, ?, ?, ?)`,
		id, c.Name, c.Email, c.Address, c.Phone,
	); err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("sqlite: user appended", "id", id)
	return id, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
