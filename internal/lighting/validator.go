package lighting

import "github.com/Lux-EE464H/Lux/internal/colorutil"

// IsExpected reports whether the live state is perceptually close enough to
// the prediction to be used as training feedback. The distance is returned
// for reporting.
func IsExpected(predicted RGB, current LightState, threshold float64) (bool, float64) {
	deltaE := colorutil.DeltaE2000(predicted, current.RGB())
	return deltaE < threshold, deltaE
}
