package lighting

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// CycleRunner runs one controller cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*CycleReport, error)
}

// Agent drives the controller on a fixed interval. A single goroutine owns
// the ticker, so cycles never overlap within a process.
type Agent struct {
	runner   CycleRunner
	interval time.Duration
	logger   *slog.Logger

	trigger    chan struct{}
	cycles     atomic.Int64
	lastReport atomic.Pointer[CycleReport]
}

// NewAgent creates a new lighting agent
func NewAgent(runner CycleRunner, interval time.Duration, logger *slog.Logger) *Agent {
	return &Agent{
		runner:   runner,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate cycle. Requests made while one is pending are coalesced.
func (a *Agent) Trigger() bool {
	select {
	case a.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start runs a cycle immediately and then on every tick until ctx is cancelled
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting lighting agent", "cycle_interval", a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			a.RunOnce(ctx)
		case <-a.trigger:
			a.logger.Info("Running triggered cycle")
			a.RunOnce(ctx)
			ticker.Reset(a.interval)
		case <-ctx.Done():
			a.logger.Info("Lighting agent stopping", "cycles", a.cycles.Load())
			return nil
		}
	}
}

// RunOnce runs a single cycle. Cycle errors are logged, never returned.
func (a *Agent) RunOnce(ctx context.Context) *CycleReport {
	report, err := a.runner.RunCycle(ctx)
	a.cycles.Add(1)
	if report != nil {
		a.lastReport.Store(report)
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		a.logger.Info("Cycle skipped, another cycle holds the lock")
	case errors.Is(err, ErrNoLightsAvailable), errors.Is(err, ErrUpstreamUnavailable):
		a.logger.Warn("Cycle degraded", "error", err)
	default:
		a.logger.Error("Cycle failed", "error", err)
	}

	return report
}

// CycleCount returns the number of cycles attempted (for health check)
func (a *Agent) CycleCount() int64 {
	return a.cycles.Load()
}

// LastReport returns the most recent cycle report, or nil
func (a *Agent) LastReport() *CycleReport {
	return a.lastReport.Load()
}

// LastOutcome returns the outcome of the most recent reported cycle
func (a *Agent) LastOutcome() string {
	if report := a.lastReport.Load(); report != nil {
		return report.Outcome
	}
	return ""
}
