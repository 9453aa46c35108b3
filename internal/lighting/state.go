package lighting

import (
	"math"
	"time"

	"github.com/Lux-EE464H/Lux/internal/colorutil"
)

// RGB is the colour space the predictor and blender work in
type RGB = colorutil.RGB

// LightState is one device report or the reconciled room state
type LightState struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
	Kelvin     float64 `json:"kelvin"`
	Connected  bool    `json:"connected,omitempty"`
}

// RGB converts the state to sRGB
func (s LightState) RGB() RGB {
	return colorutil.HSBKToRGB(s.Hue, s.Saturation, s.Brightness, s.Kelvin)
}

// Tolerance holds the per-channel epsilon used when comparing two states
type Tolerance struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
	Kelvin     float64 `json:"kelvin"`
}

// DefaultTolerance is ±1 on every channel
var DefaultTolerance = Tolerance{Hue: 1, Saturation: 1, Brightness: 1, Kelvin: 1}

// Same reports whether a and b are equal within the tolerance on every channel.
// Connectivity is not compared. Hue is compared on the line, not the circle,
// so 359.9 and 0.2 differ.
func (t Tolerance) Same(a, b LightState) bool {
	return math.Abs(a.Hue-b.Hue) <= t.Hue &&
		math.Abs(a.Saturation-b.Saturation) <= t.Saturation &&
		math.Abs(a.Brightness-b.Brightness) <= t.Brightness &&
		math.Abs(a.Kelvin-b.Kelvin) <= t.Kelvin
}

// Reading is a single device as reported by the light provider
type Reading struct {
	ID    string     `json:"id"`
	Label string     `json:"label,omitempty"`
	State LightState `json:"state"`
}

// OverrideRecord is an active user override. A nil record means Idle.
type OverrideRecord struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
	Kelvin     float64 `json:"kelvin"`
	Weight     float64 `json:"weight"`
	DecayRate  float64 `json:"decay_rate"`
}

// RGB converts the override colour to sRGB
func (o *OverrideRecord) RGB() RGB {
	return colorutil.HSBKToRGB(o.Hue, o.Saturation, o.Brightness, o.Kelvin)
}

// Active reports whether the record still carries weight
func (o *OverrideRecord) Active() bool {
	return o != nil && o.Weight > 0
}

// Snapshot is everything a cycle loads at start and writes back at the end
type Snapshot struct {
	Override       *OverrideRecord `json:"override,omitempty"`
	LastObserved   *LightState     `json:"last_observed,omitempty"`
	LastPrediction *RGB            `json:"last_prediction,omitempty"`
	LastCloudCover *float64        `json:"last_cloud_cover,omitempty"`
}

// Target is what the actuator sends to the lights
type Target struct {
	Color      RGB     `json:"color"`
	Brightness float64 `json:"brightness"`
}

// Settings is the slice of configuration a cycle needs
type Settings struct {
	Location        string
	DeltaEThreshold float64
	DecayRate       float64
	MaxRetries      int
	CallTimeout     time.Duration
	Tolerance       Tolerance
}
