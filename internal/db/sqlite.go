package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// KeyValue is the local key-value storage the card store persists into
type KeyValue interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// Database represents a SQLite database connection used as a key-value store
type Database struct {
	conn *sqlx.DB
}

// entry is one row of the storage table
type entry struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

const schema = `
CREATE TABLE IF NOT EXISTS storage (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// NewDatabase creates a new database connection and initializes the schema
func NewDatabase(dbPath string) (*Database, error) {
	// For in-memory databases, use shared cache mode for concurrent access
	if dbPath == ":memory:" {
		dbPath = "file::memory:?cache=shared"
	} else if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	// Enable WAL mode for better concurrent access (skip for in-memory)
	if dbPath != "file::memory:?cache=shared" {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Database{conn: conn}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Get returns the value stored under key. The boolean is false when the key is absent.
func (db *Database) Get(key string) ([]byte, bool, error) {
	var row entry
	err := db.conn.Get(&row, `SELECT key, value FROM storage WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return []byte(row.Value), true, nil
}

// Put writes value under key, replacing any previous value
func (db *Database) Put(key string, value []byte) error {
	query := `INSERT INTO storage (key, value, updated_at) VALUES (:key, :value, CURRENT_TIMESTAMP)
	          ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := db.conn.NamedExec(query, entry{Key: key, Value: string(value)}); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}
