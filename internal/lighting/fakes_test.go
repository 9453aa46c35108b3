package lighting

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeLights answers ListLights from a fixed slice and SetColor from a status script
type fakeLights struct {
	mu       sync.Mutex
	readings []Reading
	listErr  error
	statuses []int
	setErr   error
	targets  []Target
	listed   int
}

func (f *fakeLights) ListLights(ctx context.Context) ([]Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.readings, nil
}

func (f *fakeLights) SetColor(ctx context.Context, target Target) (SetResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	if f.setErr != nil {
		return SetResult{}, f.setErr
	}
	status := 207
	if len(f.statuses) > 0 {
		i := len(f.targets) - 1
		if i >= len(f.statuses) {
			i = len(f.statuses) - 1
		}
		status = f.statuses[i]
	}
	return SetResult{StatusCode: status}, nil
}

type update struct {
	observed RGB
	enc      TimeEncoding
}

// fakePredictor returns a fixed colour and records updates
type fakePredictor struct {
	color      RGB
	predictErr error
	updateErr  error
	updates    []update
}

func (f *fakePredictor) Predict(ctx context.Context, enc TimeEncoding) (RGB, error) {
	if f.predictErr != nil {
		return RGB{}, f.predictErr
	}
	return f.color, nil
}

func (f *fakePredictor) Update(ctx context.Context, observed RGB, enc TimeEncoding) error {
	f.updates = append(f.updates, update{observed: observed, enc: enc})
	return f.updateErr
}

type fakeWeather struct {
	cloud float64
	err   error
}

func (f *fakeWeather) CloudCover(ctx context.Context) (float64, error) {
	return f.cloud, f.err
}

// memStore is an in-memory StateStore
type memStore struct {
	snap    Snapshot
	locked  bool
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Lock(ctx context.Context) (func(), error) {
	if m.locked {
		return nil, ErrCycleInProgress
	}
	m.locked = true
	return func() { m.locked = false }, nil
}

func (m *memStore) Load(ctx context.Context) (Snapshot, error) {
	return m.snap, m.loadErr
}

func (m *memStore) Save(ctx context.Context, snap Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snap = snap
	return nil
}

type fakeReporter struct {
	reports []*CycleReport
	err     error
}

func (f *fakeReporter) Report(ctx context.Context, report *CycleReport) error {
	f.reports = append(f.reports, report)
	return f.err
}

var errBoom = errors.New("boom")

func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}
