package statestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Lux-EE464H/Lux/internal/lighting"
)

// SQLiteStore keeps the snapshot in a local SQLite file for single-host setups
type SQLiteStore struct {
	db       *sql.DB
	location string
	lockTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewSQLiteStore creates a store over a database opened with pkg/sqlite
func NewSQLiteStore(db *sql.DB, location string, lockTTL time.Duration, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:       db,
		location: location,
		lockTTL:  lockTTLOrDefault(lockTTL),
		logger:   logger,
		now:      time.Now,
	}
}

// Lock claims the cycle_lock row for the location, replacing an expired holder
func (s *SQLiteStore) Lock(ctx context.Context) (func(), error) {
	token := uuid.New().String()
	now := s.now()

	err := s.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cycle_lock WHERE location = ? AND expires_at <= ?`,
			s.location, now.UnixMilli()); err != nil {
			return fmt.Errorf("failed to clear expired lock: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO cycle_lock (location, token, expires_at) VALUES (?, ?, ?)`,
			s.location, token, now.Add(s.lockTTL).UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to insert lock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read lock result: %w", err)
		}
		if n == 0 {
			return lighting.ErrCycleInProgress
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
		defer cancel()

		if _, err := s.db.ExecContext(unlockCtx,
			`DELETE FROM cycle_lock WHERE location = ? AND token = ?`,
			s.location, token); err != nil {
			s.logger.Error("Failed to release cycle lock", "location", s.location, "error", err)
		}
	}, nil
}

// Load reads every record stored for the location
func (s *SQLiteStore) Load(ctx context.Context) (lighting.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, payload FROM controller_state WHERE location = ?`, s.location)
	if err != nil {
		return lighting.Snapshot{}, fmt.Errorf("failed to query state: %w", err)
	}
	defer rows.Close()

	records := make(map[string]string)
	for rows.Next() {
		var name, payload string
		if err := rows.Scan(&name, &payload); err != nil {
			return lighting.Snapshot{}, fmt.Errorf("failed to scan state: %w", err)
		}
		records[name] = payload
	}
	if err := rows.Err(); err != nil {
		return lighting.Snapshot{}, fmt.Errorf("failed to iterate state: %w", err)
	}

	return decodeSnapshot(records, s.logger), nil
}

// Save replaces the snapshot in one transaction
func (s *SQLiteStore) Save(ctx context.Context, snap lighting.Snapshot) error {
	set, del, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)

	return s.transaction(ctx, func(tx *sql.Tx) error {
		for name, payload := range set {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO controller_state (location, name, payload, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (location, name) DO UPDATE SET
					payload = excluded.payload,
					updated_at = excluded.updated_at
			`, s.location, name, payload, updatedAt); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
		}
		for _, name := range del {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM controller_state WHERE location = ? AND name = ?`,
				s.location, name); err != nil {
				return fmt.Errorf("failed to delete %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
