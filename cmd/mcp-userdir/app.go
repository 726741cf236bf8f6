package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ggoodman/mcp-userdir/config"
	"github.com/ggoodman/mcp-userdir/internal/logging"
	"github.com/ggoodman/mcp-userdir/storage/file"
	"github.com/ggoodman/mcp-userdir/storage/memory"
	"github.com/ggoodman/mcp-userdir/storage/redis"
	"github.com/ggoodman/mcp-userdir/users"
	"github.com/ggoodman/mcp-userdir/users/postgres"
	"github.com/ggoodman/mcp-userdir/users/sqlite"
)

const connectTimeout = 5 * time.Second

// app is the process wiring shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	repo   users.Repository

	// watchPath is the users document on disk, set for the file backend only.
	watchPath string
	closers   []func() error
}

func newApp(ctx context.Context, g *globalOptions, stderr io.Writer) (*app, error) {
	cfg, err := config.Decode()
	if err != nil {
		return nil, err
	}
	g.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, _, err := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.openRepository(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	logger.DebugContext(ctx, "repository ready", slog.String("store", cfg.Store))
	return a, nil
}

func (a *app) openRepository(ctx context.Context) error {
	cfg := a.cfg
	blobOpts := []users.BlobOption{users.WithLogger(a.logger)}

	switch cfg.Store {
	case config.StoreFile:
		path, err := filepath.Abs(cfg.UsersFile)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", cfg.UsersFile, err)
		}
		st, err := file.New(filepath.Dir(path))
		if err != nil {
			return err
		}
		key := filepath.Base(path)
		if a.watchPath, err = st.Path(key); err != nil {
			return err
		}
		a.repo = users.NewBlobRepository(st, append(blobOpts, users.WithKey(key))...)

	case config.StoreMemory:
		a.repo = users.NewBlobRepository(memory.New(), blobOpts...)

	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, client.Close)
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		st, err := redis.New(redis.Config{Client: client, KeyPrefix: cfg.RedisKeyPrefix})
		if err != nil {
			return err
		}
		a.repo = users.NewBlobRepository(st, blobOpts...)

	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create sqlite directory: %w", err)
		}
		s, err := sqlite.Open(cfg.SQLitePath, sqlite.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, s.Close)
		if err := s.Init(ctx); err != nil {
			return err
		}
		a.repo = s

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		s := postgres.New(pool)
		if err := s.Init(ctx); err != nil {
			return err
		}
		a.repo = s

	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}
	return nil
}

// Close releases backend connections in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
