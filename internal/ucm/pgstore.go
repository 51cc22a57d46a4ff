package ucm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresStore satisfies Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore keeps slots as rows of the esse_buffers table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, verifies the connection and creates
// the buffer table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("ucm: parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ucm: new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ucm: ping db: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the buffer table if it does not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS esse_buffers (
			name       TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			rows       INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ucm: init schema: %w", err)
	}
	return nil
}

// Read returns the slot content.
func (s *PostgresStore) Read(ctx context.Context, name string) ([]byte, error) {
	var content string
	err := s.pool.QueryRow(ctx, `SELECT content FROM esse_buffers WHERE name = $1`, name).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &StorageError{Op: "read", Slot: name, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Slot: name, Err: err}
	}
	return []byte(content), nil
}

// Write upserts the slot row in a single statement.
func (s *PostgresStore) Write(ctx context.Context, name string, data []byte) error {
	query := `
		INSERT INTO esse_buffers (name, content, rows, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET content = EXCLUDED.content, rows = EXCLUDED.rows, updated_at = EXCLUDED.updated_at
	`
	rows := bytes.Count(data, []byte{'\n'})
	if _, err := s.pool.Exec(ctx, query, name, string(data), rows); err != nil {
		return &StorageError{Op: "write", Slot: name, Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
