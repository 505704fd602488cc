package engine

import (
	"time"

	"github.com/edvin/serverdir/internal/model"
)

// NextConfidence advances the green/yellow/red confidence state machine.
//
// The target level is computed from the heartbeat history: green while the
// latest heartbeat is within the grace window and the observation window
// holds at least minSamples samples; yellow once the gap exceeds the grace
// window or the sample count drops below the minimum; red once the gap
// reaches twice the grace window or the window is empty.
//
// Recovery from an earned red must pass through yellow: a single fresh
// heartbeat never jumps red straight to green. hasPrior is false only for
// a listing that has never been recomputed, whose stored red is the
// neutral default rather than an earned deficit.
func NextConfidence(prev string, hasPrior bool, lastReceived *time.Time, samplesInWindow, minSamples int, grace time.Duration, now time.Time) string {
	target := targetConfidence(lastReceived, samplesInWindow, minSamples, grace, now)

	if hasPrior && prev == model.ConfidenceRed && target == model.ConfidenceGreen {
		return model.ConfidenceYellow
	}
	return target
}

func targetConfidence(lastReceived *time.Time, samplesInWindow, minSamples int, grace time.Duration, now time.Time) string {
	if lastReceived == nil || samplesInWindow == 0 {
		return model.ConfidenceRed
	}

	gap := now.Sub(*lastReceived)
	switch {
	case gap >= 2*grace:
		return model.ConfidenceRed
	case gap > grace || samplesInWindow < minSamples:
		return model.ConfidenceYellow
	default:
		return model.ConfidenceGreen
	}
}
