package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/lib/pq"

	"github.com/Lux-EE464H/Lux/pkg/config"
)

// ErrNotConnected is returned by every call made before Connect or after Disconnect
var ErrNotConnected = errors.New("postgres client not connected")

// PostgresClient wraps the connection pool backing the colour predictor.
// Connect may be retried after a failure, so the pool is guarded.
type PostgresClient struct {
	mu     sync.RWMutex
	db     *sql.DB
	config *config.Config
	logger *slog.Logger
}

// NewClient creates an unconnected client for cfg's database
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresClient{config: cfg, logger: logger}
}

// Connect opens the pool and verifies the server answers
func (c *PostgresClient) Connect(ctx context.Context) error {
	if _, err := c.conn(); err == nil {
		return nil
	}

	c.logger.Info("Connecting to Postgres",
		"host", c.config.PostgresHost,
		"port", c.config.PostgresPort,
		"database", c.config.PostgresDB)

	db, err := sql.Open("postgres", c.config.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	// Cycles are minutes apart, a small pool is plenty
	db.SetMaxOpenConns(c.config.PostgresMaxConnections)
	db.SetMaxIdleConns(c.config.PostgresMaxIdleConnections)
	db.SetConnMaxLifetime(c.config.PostgresConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		// Lost a race with another Connect
		db.Close()
		return nil
	}
	c.db = db
	return nil
}

func (c *PostgresClient) conn() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db, nil
}

// Disconnect closes the pool. It is safe to call more than once.
func (c *PostgresClient) Disconnect() error {
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.mu.Unlock()
	if db == nil {
		return nil
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}
	c.logger.Info("Disconnected from Postgres")
	return nil
}

// Migrate runs schema statements in order inside one transaction
func (c *PostgresClient) Migrate(ctx context.Context, statements ...string) error {
	return c.Transaction(ctx, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d failed: %w", i+1, err)
			}
		}
		return nil
	})
}

func (c *PostgresClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	return db.QueryContext(ctx, query, args...)
}

// Transaction commits when fn returns nil and rolls back otherwise
func (c *PostgresClient) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	db, err := c.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks the server is still reachable
func (c *PostgresClient) Ping(ctx context.Context) error {
	db, err := c.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}
