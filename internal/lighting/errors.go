package lighting

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLightsAvailable is returned when no sampled device is connected
	ErrNoLightsAvailable = errors.New("no connected lights available")

	// ErrUpstreamUnavailable wraps predictor or weather failures with no fallback
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrCycleInProgress is returned when another cycle holds the state lock
	ErrCycleInProgress = errors.New("another cycle is in progress")
)

// ActuationFailure is returned when every actuation attempt failed.
// StatusCode is 0 when the last attempt never got a response.
type ActuationFailure struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *ActuationFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("actuation failed after %d attempts (status %d): %v", e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("actuation failed after %d attempts (status %d)", e.Attempts, e.StatusCode)
}

func (e *ActuationFailure) Unwrap() error {
	return e.Err
}

func upstreamError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, name, err)
}
