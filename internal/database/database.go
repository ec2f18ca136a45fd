// Package database provides SQLite access for the deploy run history.
package database

import (
	"database/sql"
	"os"
	"path/filepath"

	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a sql.DB connection.
type DB struct {
	*sql.DB
}

// New opens the history database, creating the parent directory if needed.
func New(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// NewInMemory opens a throwaway in-memory database, used by tests.
// The pool is pinned to a single connection: every sqlite :memory:
// connection is a separate empty database.
func NewInMemory() (*DB, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &DB{db}, nil
}

// Migrate runs all database migrations.
func (db *DB) Migrate() error {
	return runMigrations(db.DB)
}
