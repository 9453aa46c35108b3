package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	busyTimeoutMs  = 5000
	connectTimeout = 5 * time.Second
)

// Schema holds the single-host state tables. Each record is a JSON document keyed by location.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS controller_state (
		location   TEXT NOT NULL,
		name       TEXT NOT NULL,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (location, name)
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_lock (
		location   TEXT PRIMARY KEY,
		token      TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
}

// Open opens (creating if needed) the database at path and applies Schema
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", path, busyTimeoutMs)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// One writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema step %d: %w", i+1, err)
		}
	}

	return db, nil
}
