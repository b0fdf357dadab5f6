package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/forage/store"
	"go.hackfix.me/forage/store/sqlite/migrator"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Maximum number of keys per MultiGet query.
const multiGetBatch = 500

// Store is a Store backed by a SQLite database. Keys are ordered by an
// autoincrementing row ID, which upserts preserve.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Store = &Store{}

// Option is a function that allows configuring the store.
type Option func(*Store)

// WithLogger sets the logger used for reporting schema migrations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens the SQLite database at path, and applies any pending schema
// migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serializes access, which avoids SQLITE_BUSY errors,
	// and keeps shared in-memory databases alive.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}

	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	migrations, err := migrator.LoadMigrations(migrationsDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	err = migrator.Run(ctx, db, migrations, migrator.MigrationUp, "all", s.logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed migrating store schema: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM items WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return val, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)

	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE key = ?`, key)
	return err
}

func (s *Store) Clear(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM items WHERE substr(key, 1, length(?)) = ?`, prefix, prefix)
	return err
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM items
		WHERE substr(key, 1, length(?)) = ?
		ORDER BY id`, prefix, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *Store) MultiGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for start := 0; start < len(keys); start += multiGetBatch {
		end := min(start+multiGetBatch, len(keys))
		if err := s.multiGet(ctx, keys[start:end], result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *Store) multiGet(ctx context.Context, keys []string, result map[string][]byte) error {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT key, value FROM items WHERE key IN (%s)`, placeholders), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			val []byte
		)
		if err = rows.Scan(&key, &val); err != nil {
			return err
		}
		result[key] = val
	}

	return rows.Err()
}
