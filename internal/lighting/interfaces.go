package lighting

import "context"

// LightProvider reads and commands the physical lights
type LightProvider interface {
	ListLights(ctx context.Context) ([]Reading, error)
	SetColor(ctx context.Context, target Target) (SetResult, error)
}

// SetResult is the raw outcome of one set-colour call
type SetResult struct {
	StatusCode int
	Body       string
}

// Predictor recalls and learns the colour expected at a time of day
type Predictor interface {
	Predict(ctx context.Context, enc TimeEncoding) (RGB, error)
	Update(ctx context.Context, observed RGB, enc TimeEncoding) error
}

// WeatherProvider returns the current cloud cover as a fraction in [0,1]
type WeatherProvider interface {
	CloudCover(ctx context.Context) (float64, error)
}

// StateStore persists the snapshot between cycles and serializes cycles.
// Lock returns ErrCycleInProgress when another cycle holds the lock.
type StateStore interface {
	Lock(ctx context.Context) (unlock func(), err error)
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Reporter publishes the outcome of a cycle
type Reporter interface {
	Report(ctx context.Context, report *CycleReport) error
}
