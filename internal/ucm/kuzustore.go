//go:build cgo

package ucm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore keeps slots as Buffer nodes in a KuzuDB database. It requires
// CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	mu   sync.Mutex // one statement at a time on conn
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory database.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a database directory at
// dbPath. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	s := &KuzuStore{db: db, conn: conn}
	if err := s.InitSchema(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the Buffer node table if it does not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.conn.Query(`CREATE NODE TABLE IF NOT EXISTS Buffer(
		name STRING,
		content STRING,
		rows INT64,
		PRIMARY KEY(name)
	)`)
	if err != nil {
		return fmt.Errorf("kuzu: init schema: %w", err)
	}
	res.Close()
	return nil
}

// Read returns the content of the named Buffer node.
func (s *KuzuStore) Read(_ context.Context, name string) ([]byte, error) {
	rows, err := s.query(
		"MATCH (b:Buffer {name: $name}) RETURN b.content",
		map[string]any{"name": name},
	)
	if err != nil {
		return nil, &StorageError{Op: "read", Slot: name, Err: err}
	}
	if len(rows) == 0 {
		return nil, &StorageError{Op: "read", Slot: name, Err: ErrNotFound}
	}
	content, _ := rows[0][0].(string)
	return []byte(content), nil
}

// Write creates or replaces the named Buffer node.
func (s *KuzuStore) Write(_ context.Context, name string, data []byte) error {
	err := s.exec(
		`MERGE (b:Buffer {name: $name})
		 ON CREATE SET b.content = $content, b.rows = $rows
		 ON MATCH SET b.content = $content, b.rows = $rows`,
		map[string]any{
			"name":    name,
			"content": string(data),
			"rows":    int64(bytes.Count(data, []byte{'\n'})),
		},
	)
	if err != nil {
		return &StorageError{Op: "write", Slot: name, Err: err}
	}
	return nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// exec runs a parameterized Cypher statement that returns no rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return nil, fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}
