package lighting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTarget = Target{Color: RGB{R: 200, G: 150, B: 100}, Brightness: 0.7}

func TestActuate_SucceedsFirstTry(t *testing.T) {
	var delays []time.Duration
	device := &fakeLights{}
	a := NewActuator(device, 3, time.Second, testLogger())
	a.Sleep = noSleep(&delays)

	res, err := a.Actuate(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 207, res.StatusCode)
	assert.Empty(t, delays)
	assert.Equal(t, []Target{testTarget}, device.targets)
}

func TestActuate_BackoffSchedule(t *testing.T) {
	var delays []time.Duration
	device := &fakeLights{statuses: []int{500}}
	a := NewActuator(device, 3, time.Second, testLogger())
	a.Sleep = noSleep(&delays)

	_, err := a.Actuate(context.Background(), testTarget)

	var failure *ActuationFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 500, failure.StatusCode)
	assert.Equal(t, 4, failure.Attempts)
	assert.Equal(t, []time.Duration{1 * time.Second, 3 * time.Second, 7 * time.Second}, delays)
	assert.Len(t, device.targets, 4, "no fourth retry")
}

func TestActuate_RecoversAfterRetries(t *testing.T) {
	var delays []time.Duration
	device := &fakeLights{statuses: []int{503, 429, 200}}
	a := NewActuator(device, 3, time.Second, testLogger())
	a.Sleep = noSleep(&delays)

	res, err := a.Actuate(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, []time.Duration{1 * time.Second, 3 * time.Second}, delays)
}

func TestActuate_ZeroRetries(t *testing.T) {
	var delays []time.Duration
	device := &fakeLights{statuses: []int{500}}
	a := NewActuator(device, 0, time.Second, testLogger())
	a.Sleep = noSleep(&delays)

	_, err := a.Actuate(context.Background(), testTarget)

	var failure *ActuationFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 1, failure.Attempts)
	assert.Empty(t, delays)
}

func TestActuate_TransportErrorHasNoStatus(t *testing.T) {
	var delays []time.Duration
	device := &fakeLights{setErr: errBoom}
	a := NewActuator(device, 1, time.Second, testLogger())
	a.Sleep = noSleep(&delays)

	_, err := a.Actuate(context.Background(), testTarget)

	var failure *ActuationFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 0, failure.StatusCode)
	assert.Equal(t, 2, failure.Attempts)
	assert.True(t, errors.Is(err, errBoom))
}

func TestActuate_CancelledDuringBackoff(t *testing.T) {
	device := &fakeLights{statuses: []int{500}}
	a := NewActuator(device, 3, time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	a.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	_, err := a.Actuate(ctx, testTarget)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, device.targets, 1)
}

func TestActuate_CallTimeoutApplied(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	device := &deadlineLights{record: func(ctx context.Context) {
		deadline, hasDeadline = ctx.Deadline()
	}}
	a := NewActuator(device, 0, 50*time.Millisecond, testLogger())

	_, err := a.Actuate(context.Background(), testTarget)
	require.NoError(t, err)
	assert.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now(), deadline, time.Second)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 1*time.Second, backoff(1))
	assert.Equal(t, 3*time.Second, backoff(2))
	assert.Equal(t, 7*time.Second, backoff(3))
	assert.Equal(t, 15*time.Second, backoff(4))
}

func TestBackoff_LargeAttemptsStayPositive(t *testing.T) {
	ceiling := backoff(maxBackoffShift)
	assert.Equal(t, time.Duration(1<<16-1)*time.Second, ceiling)

	for _, attempt := range []int{17, 34, 63, 64, 1000} {
		assert.Equal(t, ceiling, backoff(attempt), "attempt %d", attempt)
	}
}

type deadlineLights struct {
	record func(ctx context.Context)
}

func (d *deadlineLights) ListLights(ctx context.Context) ([]Reading, error) { return nil, nil }

func (d *deadlineLights) SetColor(ctx context.Context, target Target) (SetResult, error) {
	d.record(ctx)
	return SetResult{StatusCode: 200}, nil
}
