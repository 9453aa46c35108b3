package weather

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCloudCover(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"latitude":30.27,"longitude":-97.74,"current":{"time":"2026-10-17T12:00","interval":900,"cloud_cover":45}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 30.2672, -97.7431, 5*time.Second, testLogger())
	cover, err := client.CloudCover(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 0.45, cover, 1e-9)
	assert.Contains(t, gotQuery, "current=cloud_cover")
	assert.Contains(t, gotQuery, "latitude=30.2672")
}

func TestCloudCover_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":true}`},
		{"malformed body", http.StatusOK, `{not json`},
		{"missing field", http.StatusOK, `{"current":{"time":"2026-10-17T12:00"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, 0, 0, time.Second, testLogger())
			_, err := client.CloudCover(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestCalculateDaylight(t *testing.T) {
	// Equator at the March equinox: sun high at local noon, below horizon at midnight
	noon := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	midnight := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	day := CalculateDaylight(0, 0, noon)
	assert.True(t, day.IsDaytime)
	assert.Greater(t, day.SunAltitude, 60.0)
	assert.False(t, day.IsGoldenHour)

	night := CalculateDaylight(0, 0, midnight)
	assert.False(t, night.IsDaytime)
	assert.Less(t, night.SunAltitude, 0.0)
}
