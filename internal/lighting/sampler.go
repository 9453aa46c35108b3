package lighting

// vote is a representative state and how many readings matched it
type vote struct {
	state LightState
	count int
}

// Sample reduces a batch of device readings to the plurality state among
// connected devices. A reading joins the first representative it matches
// within tol; on a tie the representative that reached the count first wins.
func Sample(readings []Reading, tol Tolerance) (LightState, int, error) {
	var votes []*vote
	var best *vote

	for _, r := range readings {
		if !r.State.Connected {
			continue
		}

		var match *vote
		for _, v := range votes {
			if tol.Same(v.state, r.State) {
				match = v
				break
			}
		}
		if match == nil {
			match = &vote{state: r.State}
			votes = append(votes, match)
		}
		match.count++

		if best == nil || match.count > best.count {
			best = match
		}
	}

	if best == nil {
		return LightState{}, 0, ErrNoLightsAvailable
	}
	return best.state, best.count, nil
}
