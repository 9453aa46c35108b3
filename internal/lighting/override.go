package lighting

// DetectManualChange reports whether the lights moved away from what the
// controller last commanded. Without a previous observation nothing can be
// attributed to the user.
func DetectManualChange(lastObserved *LightState, current LightState, tol Tolerance) bool {
	if lastObserved == nil {
		return false
	}
	return !tol.Same(*lastObserved, current)
}

// weightEpsilon absorbs float residue so 1.0 decays to exactly 0 in 1/rate steps
const weightEpsilon = 1e-9

// Decay lowers an override weight by rate, never below zero
func Decay(weight, rate float64) float64 {
	next := weight - rate
	if next < weightEpsilon {
		return 0
	}
	return next
}

// NextOverride computes the override record for this cycle.
//
// A manual change always (re)starts an override at full weight with the
// colour of the current reading. Otherwise an active override decays by its
// own rate and becomes nil once the weight reaches zero.
func NextOverride(prev *OverrideRecord, current LightState, manualChange bool, decayRate float64) *OverrideRecord {
	if manualChange {
		return &OverrideRecord{
			Hue:        current.Hue,
			Saturation: current.Saturation,
			Brightness: current.Brightness,
			Kelvin:     current.Kelvin,
			Weight:     1.0,
			DecayRate:  decayRate,
		}
	}
	return decayOverride(prev)
}

func decayOverride(prev *OverrideRecord) *OverrideRecord {
	if !prev.Active() {
		return nil
	}
	next := *prev
	next.Weight = Decay(prev.Weight, prev.DecayRate)
	if next.Weight == 0 {
		return nil
	}
	return &next
}
