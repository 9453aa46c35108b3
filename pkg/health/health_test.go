package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lux-EE464H/Lux/pkg/mqtt"
)

type mockMQTT struct{ connected bool }

func (m *mockMQTT) Connect(ctx context.Context) error { return nil }
func (m *mockMQTT) Disconnect()                       {}
func (m *mockMQTT) IsConnected() bool                 { return m.connected }
func (m *mockMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	return nil
}
func (m *mockMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	return nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type stats struct{}

func (stats) CycleCount() int64   { return 12 }
func (stats) LastOutcome() string { return "actuated" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func serve(t *testing.T, handler http.HandlerFunc) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHandlerFunc(t *testing.T) {
	checker := NewChecker(nil, stats{}, testLogger())

	code, resp := serve(t, checker.HandlerFunc())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(12), resp.Cycles)
	assert.Equal(t, "actuated", resp.LastOutcome)
	assert.Nil(t, resp.Services)
}

func TestDetailedHandlerFunc(t *testing.T) {
	ok := pingFunc(func(ctx context.Context) error { return nil })
	down := pingFunc(func(ctx context.Context) error { return errors.New("refused") })

	t.Run("all healthy", func(t *testing.T) {
		checker := NewChecker(&mockMQTT{connected: true}, stats{}, testLogger())
		checker.AddDependency("state", ok)
		checker.AddDependency("postgres", ok)

		code, resp := serve(t, checker.DetailedHandlerFunc())
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, map[string]string{"mqtt": "connected", "state": "connected", "postgres": "connected"}, resp.Services)
	})

	t.Run("store down", func(t *testing.T) {
		checker := NewChecker(nil, stats{}, testLogger())
		checker.AddDependency("state", down)

		code, resp := serve(t, checker.DetailedHandlerFunc())
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "disconnected", resp.Services["state"])
	})

	t.Run("mqtt disconnected", func(t *testing.T) {
		checker := NewChecker(&mockMQTT{}, nil, testLogger())

		code, resp := serve(t, checker.DetailedHandlerFunc())
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "disconnected", resp.Services["mqtt"])
		assert.Zero(t, resp.Cycles)
	})
}
