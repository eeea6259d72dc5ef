// Package storage opens the persisted key/value stack selected by the
// configuration: SQLite, Redis or memory, optionally wrapped by sealing.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	_ "modernc.org/sqlite"
)

// Store owns the repository and the connections behind it.
type Store struct {
	Metadata metadata.Repository

	closers []func() error
}

// Close releases every underlying connection.
func (s *Store) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InitDatabase opens the SQLite database at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps ":memory:" databases coherent and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open builds the repository described by cfg.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Store, error) {
	s := &Store{}

	switch cfg.StorageBackend {
	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		s.closers = append(s.closers, rdb.Close)
		s.Metadata = metadata.NewRedisRepository(rdb, cfg.RedisKey)
	case config.StorageMemory:
		s.Metadata = metadata.NewMemoryRepository()
	case config.StorageSQLite, "":
		db, err := InitDatabase(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		s.Metadata = metadata.NewSQLiteRepository(db)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if cfg.KeyFile != "" {
		key, err := cryptox.LoadOrCreateKey(cfg.KeyFile)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		sealer, err := cryptox.NewSealer(key)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Metadata = metadata.NewSealedRepository(s.Metadata, sealer)
	}

	log.Debug(ctx, "storage opened", "backend", cfg.StorageBackend, "sealed", cfg.KeyFile != "")
	return s, nil
}
