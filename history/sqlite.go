package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter persists conversation history in a SQLite database.
// It is safe for concurrent use; database/sql serializes access.
type SQLiteAdapter struct {
	db *sql.DB
}

// NewSQLiteAdapter opens (creating if necessary) a SQLite database at path
// and prepares the history table.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}
	return &SQLiteAdapter{db: db}, nil
}

// Get retrieves a value by key.
func (s *SQLiteAdapter) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM conversations WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores a value by key.
func (s *SQLiteAdapter) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, []byte(value))
	return err
}

// Delete removes a key.
func (s *SQLiteAdapter) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE key = ?`, key)
	return err
}

// Has returns true if the key exists.
func (s *SQLiteAdapter) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM conversations WHERE key = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Keys returns all keys.
func (s *SQLiteAdapter) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM conversations ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Len returns the number of stored keys.
func (s *SQLiteAdapter) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n)
	return n, err
}

// Clear removes all data.
func (s *SQLiteAdapter) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations`)
	return err
}

// Close closes the underlying database.
func (s *SQLiteAdapter) Close() error {
	return s.db.Close()
}
