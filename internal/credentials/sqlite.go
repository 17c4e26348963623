package credentials

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the primary durable token store.
type SQLiteStore struct {
	db *sql.DB
}

var _ Provider = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the token database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open token database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS tokens (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Lookup returns the token stored under key. Query failures are
// treated as a miss so a broken store degrades to the next provider.
func (s *SQLiteStore) Lookup(key string) (string, bool) {
	var value string
	err := s.db.QueryRow("SELECT value FROM tokens WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// Set stores a token. The transport itself never writes; this exists
// for the sign-in flow and tooling that populate the store.
func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO tokens (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store token %q: %w", key, err)
	}
	return nil
}

// Delete removes a token if present.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM tokens WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete token %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
