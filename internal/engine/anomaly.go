package engine

import "time"

// Spike shape thresholds, as fractions of the reported capacity. A sample
// is a spike when it reaches near capacity and both neighbors sit far
// enough below it that the trajectory is implausible for real players.
const (
	spikePeakFraction = 0.8
	spikeRiseFraction = 0.5
)

// AnomalyResult is the output of the anomaly derivation.
type AnomalyResult struct {
	Flagged        bool
	LastDetectedAt *time.Time
}

// Anomaly scans the heartbeat history for implausible player-count
// trajectories: a jump to near capacity and back within spikeWindow. The
// flag decays on its own: it stays set while the latest spike is younger
// than the quiet period and clears once the quiet period passes without a
// new one. priorLastAt carries the last detection persisted by an earlier
// recompute, so a spike is not forgotten when it rotates out of the
// history window. Samples must be ordered by ascending receive time.
func Anomaly(samples []Sample, priorLastAt *time.Time, spikeWindow, quiet time.Duration, now time.Time) AnomalyResult {
	lastAt := priorLastAt

	for i := 1; i < len(samples)-1; i++ {
		prev, cur, next := samples[i-1], samples[i], samples[i+1]
		if !isSpike(prev, cur, next, spikeWindow) {
			continue
		}
		at := cur.ReceivedAt
		if lastAt == nil || at.After(*lastAt) {
			lastAt = &at
		}
	}

	flagged := lastAt != nil && now.Sub(*lastAt) < quiet
	return AnomalyResult{Flagged: flagged, LastDetectedAt: lastAt}
}

func isSpike(prev, cur, next Sample, spikeWindow time.Duration) bool {
	capacity := float64(cur.PlayersMax)
	if capacity <= 0 {
		return false
	}
	if next.ReceivedAt.Sub(prev.ReceivedAt) > spikeWindow {
		return false
	}
	peak := float64(cur.PlayersCurrent)
	rise := peak - float64(prev.PlayersCurrent)
	drop := peak - float64(next.PlayersCurrent)
	return peak >= spikePeakFraction*capacity &&
		rise >= spikeRiseFraction*capacity &&
		drop >= spikeRiseFraction*capacity
}
