package lighting

import (
	"time"

	"github.com/Lux-EE464H/Lux/pkg/weather"
)

// Cycle outcomes
const (
	OutcomeActuated            = "actuated"
	OutcomeActuationFailed     = "actuation_failed"
	OutcomeNoLights            = "no_lights"
	OutcomeUpstreamUnavailable = "upstream_unavailable"
	OutcomeError               = "error"
)

// Value sources for prediction and cloud cover
const (
	SourceLive      = "live"
	SourceLastKnown = "last_known"
)

// CycleReport records what one cycle saw and did
type CycleReport struct {
	CycleID    string        `json:"cycle_id"`
	Location   string        `json:"location"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
	Outcome    string        `json:"outcome"`

	Current *LightState `json:"current,omitempty"`
	Votes   int         `json:"votes"`

	TimeEncoding     TimeEncoding `json:"time_encoding"`
	Prediction       *RGB         `json:"prediction,omitempty"`
	PredictionSource string       `json:"prediction_source,omitempty"`
	DeltaE           *float64     `json:"delta_e,omitempty"`
	Expected         bool         `json:"expected"`
	FeedbackSent     bool         `json:"feedback_sent"`

	ManualChange bool            `json:"manual_change"`
	Override     *OverrideRecord `json:"override,omitempty"`

	CloudCover       *float64          `json:"cloud_cover,omitempty"`
	CloudCoverSource string            `json:"cloud_cover_source,omitempty"`
	Daylight         *weather.Daylight `json:"daylight,omitempty"`

	Target     *Target `json:"target,omitempty"`
	Attempts   int     `json:"attempts"`
	StatusCode int     `json:"status_code,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// OverrideWeight is the post-transition override weight, 0 when Idle
func (r *CycleReport) OverrideWeight() float64 {
	if r.Override == nil {
		return 0
	}
	return r.Override.Weight
}

func (r *CycleReport) finish(outcome string, err error, end time.Time) {
	r.Outcome = outcome
	if err != nil {
		r.Error = err.Error()
	}
	r.Duration = end.Sub(r.StartedAt)
	r.DurationMs = r.Duration.Milliseconds()
}
