package lighting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lux-EE464H/Lux/internal/colorutil"
	"github.com/Lux-EE464H/Lux/pkg/weather"
	"github.com/google/uuid"
)

// persistTimeout bounds the final save when the cycle context is already done
const persistTimeout = 5 * time.Second

// DaylightProvider reports the sun position for a moment
type DaylightProvider interface {
	Daylight(t time.Time) weather.Daylight
}

// Dependencies are the collaborators a controller drives
type Dependencies struct {
	Lights    LightProvider
	Predictor Predictor
	Weather   WeatherProvider
	Daylight  DaylightProvider
	Store     StateStore
	Reporters []Reporter
}

// Controller runs one reconciliation cycle at a time against a state store
type Controller struct {
	deps     Dependencies
	settings Settings
	actuator *Actuator
	logger   *slog.Logger
	now      func() time.Time
}

// NewController creates a controller
func NewController(deps Dependencies, settings Settings, logger *slog.Logger) *Controller {
	return &Controller{
		deps:     deps,
		settings: settings,
		actuator: NewActuator(deps.Lights, settings.MaxRetries, settings.CallTimeout, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// RunCycle samples the lights, reconciles prediction, override and weather,
// actuates and persists the new snapshot. Recoverable failures are returned
// together with the report; ErrCycleInProgress returns a nil report.
func (c *Controller) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{
		CycleID:   uuid.New().String(),
		Location:  c.settings.Location,
		StartedAt: c.now(),
	}
	logger := c.logger.With("cycle_id", report.CycleID)

	unlock, err := c.deps.Store.Lock(ctx)
	if err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			logger.Warn("Skipping cycle, state is locked")
			return nil, err
		}
		return nil, fmt.Errorf("failed to acquire state lock: %w", err)
	}
	defer unlock()

	snap, err := c.deps.Store.Load(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load state: %w", err)
		report.finish(OutcomeError, err, c.now())
		c.publish(ctx, report, logger)
		return report, err
	}

	outcome, err := c.reconcile(ctx, snap, report, logger)
	report.finish(outcome, err, c.now())

	logger.Info("Cycle complete",
		"outcome", report.Outcome,
		"override_weight", report.OverrideWeight(),
		"attempts", report.Attempts,
		"duration_ms", report.DurationMs)

	c.publish(ctx, report, logger)
	return report, err
}

func (c *Controller) reconcile(ctx context.Context, snap Snapshot, report *CycleReport, logger *slog.Logger) (string, error) {
	now := c.now()
	if c.deps.Daylight != nil {
		daylight := c.deps.Daylight.Daylight(now)
		report.Daylight = &daylight
	}

	current, votes, err := c.sample(ctx)
	if err != nil {
		// Decay needs no live reading; LastObserved stays as it was
		next := snap
		next.Override = decayOverride(snap.Override)
		report.Override = next.Override
		logger.Warn("No live reading, skipping actuation", "error", err)

		if saveErr := c.save(ctx, next); saveErr != nil {
			return OutcomeError, errors.Join(err, saveErr)
		}
		if errors.Is(err, ErrNoLightsAvailable) {
			return OutcomeNoLights, err
		}
		return OutcomeUpstreamUnavailable, err
	}
	report.Current = &current
	report.Votes = votes

	enc := EncodeTime(now)
	report.TimeEncoding = enc

	next := Snapshot{
		LastPrediction: snap.LastPrediction,
		LastCloudCover: snap.LastCloudCover,
	}

	predicted, predErr := c.predict(ctx, enc, snap, report, logger)
	if predErr == nil {
		next.LastPrediction = &predicted
		if snap.LastObserved != nil {
			c.feedback(ctx, predicted, current, enc, report, logger)
		}
	}

	manual := DetectManualChange(snap.LastObserved, current, c.settings.Tolerance)
	next.Override = NextOverride(snap.Override, current, manual, c.settings.DecayRate)
	report.ManualChange = manual
	report.Override = next.Override
	if manual {
		logger.Info("Manual change detected, override started",
			"hue", current.Hue,
			"saturation", current.Saturation,
			"brightness", current.Brightness)
	}

	cloud, cloudErr := c.cloudCover(ctx, snap, report, logger)
	if cloudErr == nil {
		next.LastCloudCover = &cloud
	}

	if upstreamErr := errors.Join(predErr, cloudErr); upstreamErr != nil {
		// Lights were not touched, so what we saw is what the next cycle should compare against
		observed := current
		observed.Connected = false
		next.LastObserved = &observed
		if err := c.save(ctx, next); err != nil {
			return OutcomeError, errors.Join(upstreamErr, err)
		}
		return OutcomeUpstreamUnavailable, upstreamErr
	}

	target := Blend(predicted, next.Override, cloud)
	report.Target = &target

	result, actErr := c.actuator.Actuate(ctx, target)
	report.Attempts = result.Attempts
	report.StatusCode = result.StatusCode
	var failure *ActuationFailure
	if errors.As(actErr, &failure) {
		report.Attempts = failure.Attempts
		report.StatusCode = failure.StatusCode
	}

	// Record what was commanded even on failure so our own target is never read back as a user change
	commanded := commandedState(target, current)
	next.LastObserved = &commanded
	if err := c.save(ctx, next); err != nil {
		return OutcomeError, errors.Join(actErr, err)
	}

	if actErr != nil {
		logger.Error("Actuation failed", "error", actErr)
		return OutcomeActuationFailed, actErr
	}
	return OutcomeActuated, nil
}

func (c *Controller) sample(ctx context.Context) (LightState, int, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	readings, err := c.deps.Lights.ListLights(callCtx)
	if err != nil {
		return LightState{}, 0, upstreamError("light provider", err)
	}
	return Sample(readings, c.settings.Tolerance)
}

func (c *Controller) predict(ctx context.Context, enc TimeEncoding, snap Snapshot, report *CycleReport, logger *slog.Logger) (RGB, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	predicted, err := c.deps.Predictor.Predict(callCtx, enc)
	if err == nil {
		report.Prediction = &predicted
		report.PredictionSource = SourceLive
		return predicted, nil
	}

	if snap.LastPrediction != nil {
		logger.Warn("Predictor unavailable, using last known prediction", "error", err)
		fallback := *snap.LastPrediction
		report.Prediction = &fallback
		report.PredictionSource = SourceLastKnown
		return fallback, nil
	}
	return RGB{}, upstreamError("predictor", err)
}

func (c *Controller) feedback(ctx context.Context, predicted RGB, current LightState, enc TimeEncoding, report *CycleReport, logger *slog.Logger) {
	expected, deltaE := IsExpected(predicted, current, c.settings.DeltaEThreshold)
	report.DeltaE = &deltaE
	report.Expected = expected
	if !expected {
		logger.Debug("Live state deviates from prediction, not training",
			"delta_e", deltaE,
			"threshold", c.settings.DeltaEThreshold)
		return
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err := c.deps.Predictor.Update(callCtx, current.RGB(), enc); err != nil {
		logger.Warn("Failed to update predictor", "error", err)
		return
	}
	report.FeedbackSent = true
}

func (c *Controller) cloudCover(ctx context.Context, snap Snapshot, report *CycleReport, logger *slog.Logger) (float64, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	cloud, err := c.deps.Weather.CloudCover(callCtx)
	if err == nil {
		report.CloudCover = &cloud
		report.CloudCoverSource = SourceLive
		return cloud, nil
	}

	if snap.LastCloudCover != nil {
		logger.Warn("Weather unavailable, using last known cloud cover", "error", err)
		fallback := *snap.LastCloudCover
		report.CloudCover = &fallback
		report.CloudCoverSource = SourceLastKnown
		return fallback, nil
	}
	return 0, upstreamError("weather", err)
}

func (c *Controller) save(ctx context.Context, snap Snapshot) error {
	// Persist even if the cycle was cancelled mid-way
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := c.deps.Store.Save(saveCtx, snap); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (c *Controller) publish(ctx context.Context, report *CycleReport, logger *slog.Logger) {
	for _, r := range c.deps.Reporters {
		if err := r.Report(ctx, report); err != nil {
			logger.Warn("Failed to publish cycle report", "error", err)
		}
	}
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.settings.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.settings.CallTimeout)
}

// commandedState is the HSBK the lights should report after applying target.
// Hue and saturation come from the bytes sent, not the unrounded blend.
func commandedState(target Target, current LightState) LightState {
	h, s, _ := colorutil.RGBToHSB(target.Color.Quantize())
	return LightState{
		Hue:        h,
		Saturation: s,
		Brightness: target.Brightness,
		Kelvin:     current.Kelvin,
	}
}
