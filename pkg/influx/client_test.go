package influx

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lux-EE464H/Lux/pkg/config"
)

func TestConnect_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := config.NewConfig()
	cfg.InfluxEnabled = false

	client, err := Connect(context.Background(), cfg, logger)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Nil(t, client)
}

func TestConnect_Integration(t *testing.T) {
	t.Skip("Integration test - requires InfluxDB")
}
