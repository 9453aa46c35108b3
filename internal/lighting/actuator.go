package lighting

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ActuationResult describes a successful actuation
type ActuationResult struct {
	StatusCode int
	Attempts   int
}

// Actuator sends a target to the lights with bounded exponential backoff.
// After failed attempt n it waits 2^n-1 seconds (1s, 3s, 7s, ...) and gives
// up once n exceeds MaxRetries.
type Actuator struct {
	Device      LightProvider
	MaxRetries  int
	CallTimeout time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
	Logger      *slog.Logger
}

// NewActuator creates an actuator that sleeps on the wall clock
func NewActuator(device LightProvider, maxRetries int, callTimeout time.Duration, logger *slog.Logger) *Actuator {
	return &Actuator{
		Device:      device,
		MaxRetries:  maxRetries,
		CallTimeout: callTimeout,
		Sleep:       sleepContext,
		Logger:      logger,
	}
}

// Actuate applies target. It returns *ActuationFailure once retries are
// exhausted, or the context error if cancelled while backing off.
func (a *Actuator) Actuate(ctx context.Context, target Target) (ActuationResult, error) {
	sleep := a.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; ; attempt++ {
		status, err := a.attempt(ctx, target)
		if err == nil && status >= 200 && status < 300 {
			return ActuationResult{StatusCode: status, Attempts: attempt}, nil
		}
		if err == nil {
			err = fmt.Errorf("unexpected status %d", status)
		}

		if attempt > a.MaxRetries {
			return ActuationResult{}, &ActuationFailure{StatusCode: status, Attempts: attempt, Err: err}
		}

		delay := backoff(attempt)
		a.logger().Warn("Actuation attempt failed, retrying",
			"attempt", attempt,
			"status", status,
			"delay", delay,
			"error", err)

		if err := sleep(ctx, delay); err != nil {
			return ActuationResult{}, fmt.Errorf("actuation cancelled during backoff: %w", err)
		}
	}
}

func (a *Actuator) attempt(ctx context.Context, target Target) (int, error) {
	callCtx := ctx
	if a.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.CallTimeout)
		defer cancel()
	}

	res, err := a.Device.SetColor(callCtx, target)
	if err != nil {
		return 0, err
	}
	return res.StatusCode, nil
}

func (a *Actuator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// maxBackoffShift caps the exponent so the delay stays inside time.Duration
const maxBackoffShift = 16

// backoff returns 2^attempt - 1 seconds, flat from attempt maxBackoffShift on
func backoff(attempt int) time.Duration {
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	return time.Duration((1<<attempt)-1) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
