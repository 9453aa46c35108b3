package postgres

import (
	"context"
	"database/sql"
)

// Client is the slice of PostgreSQL the colour predictor needs
type Client interface {
	// Connect establishes a connection to the PostgreSQL database. It is a
	// no-op while already connected.
	Connect(ctx context.Context) error

	// Disconnect closes the connection to the PostgreSQL database
	Disconnect() error

	// Query executes a query that returns rows
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

	// Transaction executes a function within a database transaction
	Transaction(ctx context.Context, fn func(*sql.Tx) error) error

	// Migrate runs schema statements in order inside one transaction
	Migrate(ctx context.Context, statements ...string) error

	// Ping verifies the connection is alive
	Ping(ctx context.Context) error
}
