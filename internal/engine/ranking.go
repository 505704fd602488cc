package engine

import "math"

// Ranking weights. Quality carries the most signal; uptime and live
// players act as tie-breakers within a quality band.
const (
	rankingUptimeWeight   = 0.5
	rankingUptimeLogScale = 2.0
)

// RankingInputs are the already-derived fields the ranking function is
// allowed to see. It never reads raw heartbeat history, so replaying old
// heartbeats cannot move a score.
type RankingInputs struct {
	QualityScore   *float64
	UptimePct      *float64
	PlayersCurrent int
	AnomalyFlagged bool
}

// Ranking combines derived fields into a single comparable score. Guards:
// the player contribution saturates at playerCap, uptime above uptimeKnee
// contributes logarithmically instead of linearly, and an active anomaly
// flag subtracts anomalyPenalty. Pure and deterministic: identical inputs
// yield bit-identical scores.
func Ranking(in RankingInputs, playerCap int, uptimeKnee, anomalyPenalty float64) float64 {
	var score float64

	if in.QualityScore != nil {
		score += *in.QualityScore
	}

	if in.UptimePct != nil {
		u := clamp(*in.UptimePct, 0, 100)
		if u <= uptimeKnee {
			score += u * rankingUptimeWeight
		} else {
			score += uptimeKnee*rankingUptimeWeight + math.Log1p(u-uptimeKnee)*rankingUptimeLogScale
		}
	}

	players := in.PlayersCurrent
	if players < 0 {
		players = 0
	}
	if players > playerCap {
		players = playerCap
	}
	score += float64(players)

	if in.AnomalyFlagged {
		score -= anomalyPenalty
	}

	return score
}
