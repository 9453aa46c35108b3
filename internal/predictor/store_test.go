package predictor

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lux-EE464H/Lux/internal/lighting"
	"github.com/Lux-EE464H/Lux/pkg/config"
	"github.com/Lux-EE464H/Lux/pkg/postgres"
)

var errBoom = errors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeDB is a postgres.Client whose Connect fails until told otherwise
type fakeDB struct {
	connectErr error
	connects   int
	migrations int
	queries    int
	txs        int
}

func (f *fakeDB) Connect(ctx context.Context) error {
	f.connects++
	return f.connectErr
}

func (f *fakeDB) Disconnect() error { return nil }

func (f *fakeDB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	f.queries++
	return nil, errBoom
}

func (f *fakeDB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	f.txs++
	return errBoom
}

func (f *fakeDB) Migrate(ctx context.Context, statements ...string) error {
	f.migrations++
	return nil
}

func (f *fakeDB) Ping(ctx context.Context) error { return f.connectErr }

var _ postgres.Client = (*fakeDB)(nil)

func TestStore_ConnectsLazily(t *testing.T) {
	db := &fakeDB{connectErr: postgres.ErrNotConnected}
	store := NewStore(db, "study", 3, testLogger())
	ctx := context.Background()
	enc := lighting.EncodeTime(time.Date(2026, 10, 17, 19, 0, 0, 0, time.UTC))

	// Database down: no query is attempted
	_, err := store.Predict(ctx, enc)
	require.Error(t, err)
	assert.ErrorIs(t, err, postgres.ErrNotConnected)
	assert.Error(t, store.Update(ctx, lighting.RGB{R: 1}, enc))
	assert.Equal(t, 0, db.queries)
	assert.Equal(t, 0, db.txs)
	assert.Equal(t, 0, db.migrations)
	assert.Equal(t, 2, db.connects)

	// Database back: schema is applied once, then calls go through
	db.connectErr = nil
	_, err = store.Predict(ctx, enc)
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, store.Update(ctx, lighting.RGB{R: 1}, enc), errBoom)
	assert.Equal(t, 1, db.queries)
	assert.Equal(t, 1, db.txs)
	assert.Equal(t, 1, db.migrations)
	assert.Equal(t, 3, db.connects)
}

func TestMeanColor(t *testing.T) {
	assert.Equal(t, DefaultColor, meanColor(nil, DefaultColor))

	got := meanColor([]lighting.RGB{
		{R: 200, G: 150, B: 100},
		{R: 100, G: 50, B: 0},
	}, DefaultColor)
	assert.Equal(t, lighting.RGB{R: 150, G: 100, B: 50}, got)
}

func TestStore_PredictUpdate(t *testing.T) {
	t.Skip("Integration test - requires PostgreSQL with pgvector")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := config.NewConfig()
	db := postgres.NewClient(cfg, logger)
	ctx := context.Background()
	require.NoError(t, db.Connect(ctx))
	defer db.Disconnect()

	store := NewStore(db, "test-"+time.Now().Format("150405"), 3, logger)
	require.NoError(t, store.EnsureSchema(ctx))

	enc := lighting.EncodeTime(time.Date(2026, 10, 17, 19, 0, 0, 0, time.UTC))
	got, err := store.Predict(ctx, enc)
	require.NoError(t, err)
	assert.Equal(t, DefaultColor, got)

	require.NoError(t, store.Update(ctx, lighting.RGB{R: 255, G: 180, B: 120}, enc))
	got, err = store.Predict(ctx, enc)
	require.NoError(t, err)
	assert.Equal(t, lighting.RGB{R: 255, G: 180, B: 120}, got)
}
