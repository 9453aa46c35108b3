package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lux-EE464H/Lux/pkg/mqtt"
)

// pingTimeout bounds each dependency ping in the detailed check
const pingTimeout = 2 * time.Second

// Pinger is a dependency that can report its own reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// CycleStats exposes the agent's progress
type CycleStats interface {
	CycleCount() int64
	LastOutcome() string
}

// Checker provides health check functionality for the agent
type Checker struct {
	mqtt   mqtt.Client
	pinger map[string]Pinger
	stats  CycleStats
	logger *slog.Logger
}

// NewChecker creates a health checker. mqttClient may be nil when MQTT is disabled.
func NewChecker(mqttClient mqtt.Client, stats CycleStats, logger *slog.Logger) *Checker {
	return &Checker{
		mqtt:   mqttClient,
		pinger: make(map[string]Pinger),
		stats:  stats,
		logger: logger,
	}
}

// AddDependency registers a named dependency for the detailed check
func (h *Checker) AddDependency(name string, p Pinger) {
	h.pinger[name] = p
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Cycles      int64             `json:"cycles"`
	LastOutcome string            `json:"last_outcome,omitempty"`
	Services    map[string]string `json:"services,omitempty"`
}

// HandlerFunc returns the liveness handler. It answers 200 while the process
// is alive without probing dependencies.
func (h *Checker) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := h.baseResponse("ok")
		h.write(w, http.StatusOK, response)
	}
}

// DetailedHandlerFunc returns a handler that pings every dependency
func (h *Checker) DetailedHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := h.baseResponse("healthy")
		response.Services = make(map[string]string)
		statusCode := http.StatusOK

		if h.mqtt != nil {
			if h.mqtt.IsConnected() {
				response.Services["mqtt"] = "connected"
			} else {
				response.Services["mqtt"] = "disconnected"
			}
		}

		for name, p := range h.pinger {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			err := p.Ping(ctx)
			cancel()
			if err != nil {
				h.logger.Warn("Dependency health check failed", "dependency", name, "error", err)
				response.Services[name] = "disconnected"
				continue
			}
			response.Services[name] = "connected"
		}

		for _, s := range response.Services {
			if s == "disconnected" {
				response.Status = "degraded"
				statusCode = http.StatusServiceUnavailable
				break
			}
		}

		h.write(w, statusCode, response)
	}
}

func (h *Checker) baseResponse(status string) HealthResponse {
	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if h.stats != nil {
		response.Cycles = h.stats.CycleCount()
		response.LastOutcome = h.stats.LastOutcome()
	}
	return response
}

func (h *Checker) write(w http.ResponseWriter, statusCode int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode health response", "error", err)
	}
}
