// Package postgres implements users.Repository using PostgreSQL.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor injection.
// The caller creates and closes the pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ggoodman/mcp-userdir/users"
)

// Store implements users.Repository backed by PostgreSQL.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

var _ users.Repository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the table name (default "users"). The name is quoted
// as an identifier.
func WithTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = name
		}
	}
}

// New creates a Store using an existing pgxpool.Pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, table: "users"}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// Init creates the table. Safe to call multiple times.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.ident()+` (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		address TEXT NOT NULL,
		phone TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("postgres: create table: %w", err)
	}
	return nil
}

// List returns all users ordered by id.
func (s *Store) List(ctx context.Context) ([]users.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, address, phone FROM `+s.ident()+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	out := []users.User{}
	for rows.Next() {
		var u users.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.Phone); err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	return out, nil
}

// Append inserts c with id = count+1. The table lock blocks concurrent
// appenders until commit, so identifiers stay unique.
func (s *Store) Append(ctx context.Context, c users.Candidate) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `LOCK TABLE `+s.ident()+` IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return 0, fmt.Errorf("postgres: lock: %w", err)
	}
	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM `+s.ident()).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count users: %w", err)
	}
	id := n + 1
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+s.ident()+` (id, name, email, address, phone) VALUES ($1, $2, $3, $4, $5)`,
		id, c.Name, c.Email, c.Address, c.Phone,
	); err != nil {
		return 0, fmt.Errorf("postgres: insert user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return id, nil
}
