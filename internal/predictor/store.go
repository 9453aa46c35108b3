// Package predictor recalls the colour the lights usually show at a time of
// day by averaging the nearest stored observations in pgvector.
package predictor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/Lux-EE464H/Lux/internal/lighting"
	"github.com/Lux-EE464H/Lux/pkg/postgres"
)

// DefaultColor is predicted until any observation has been recorded
var DefaultColor = lighting.RGB{R: 255, G: 214, B: 170}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS color_observations (
		id UUID PRIMARY KEY,
		location TEXT NOT NULL,
		embedding vector(3) NOT NULL,
		r DOUBLE PRECISION NOT NULL,
		g DOUBLE PRECISION NOT NULL,
		b DOUBLE PRECISION NOT NULL,
		meridiem TEXT NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_color_observations_location ON color_observations (location)`,
}

// Store implements lighting.Predictor on top of Postgres
type Store struct {
	db         postgres.Client
	location   string
	neighbours int
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	prepared bool
}

// NewStore creates a predictor for one location averaging k neighbours
func NewStore(db postgres.Client, location string, neighbours int, logger *slog.Logger) *Store {
	return &Store{
		db:         db,
		location:   location,
		neighbours: neighbours,
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureSchema creates the extension, table and index if missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.Migrate(ctx, schema...); err != nil {
		return fmt.Errorf("failed to create predictor schema: %w", err)
	}
	return nil
}

// Prepare connects and creates the schema once. Predict and Update call it
// first, so a database that was down at startup is picked up when it returns.
func (s *Store) Prepare(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prepared {
		return nil
	}

	if err := s.db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect predictor database: %w", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	s.prepared = true
	return nil
}

// Predict returns the mean colour of the nearest observations to enc
func (s *Store) Predict(ctx context.Context, enc lighting.TimeEncoding) (lighting.RGB, error) {
	if err := s.Prepare(ctx); err != nil {
		return lighting.RGB{}, err
	}

	query := `
		SELECT r, g, b
		FROM color_observations
		WHERE location = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`

	rows, err := s.db.Query(ctx, query, s.location, pgvector.NewVector(enc.Vector()), s.neighbours)
	if err != nil {
		return lighting.RGB{}, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var colors []lighting.RGB
	for rows.Next() {
		var c lighting.RGB
		if err := rows.Scan(&c.R, &c.G, &c.B); err != nil {
			return lighting.RGB{}, fmt.Errorf("failed to scan observation: %w", err)
		}
		colors = append(colors, c)
	}
	if err := rows.Err(); err != nil {
		return lighting.RGB{}, fmt.Errorf("failed to iterate observations: %w", err)
	}

	if len(colors) == 0 {
		s.logger.Debug("No observations yet, predicting default colour", "location", s.location)
	}
	return meanColor(colors, DefaultColor), nil
}

// Update records an observed colour for the time encoding
func (s *Store) Update(ctx context.Context, observed lighting.RGB, enc lighting.TimeEncoding) error {
	if err := s.Prepare(ctx); err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO color_observations (id, location, embedding, r, g, b, meridiem, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			uuid.New(),
			s.location,
			pgvector.NewVector(enc.Vector()),
			observed.R, observed.G, observed.B,
			enc.Meridiem,
			s.now(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
		return nil
	})
}

func meanColor(colors []lighting.RGB, fallback lighting.RGB) lighting.RGB {
	if len(colors) == 0 {
		return fallback
	}

	var sum lighting.RGB
	for _, c := range colors {
		sum.R += c.R
		sum.G += c.G
		sum.B += c.B
	}
	n := float64(len(colors))
	return lighting.RGB{R: sum.R / n, G: sum.G / n, B: sum.B / n}
}
