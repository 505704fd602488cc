package engine

import "github.com/edvin/serverdir/internal/model"

// Quality blend weights. Uptime dominates; confidence and recent player
// activity adjust within it. Weights sum to 1 so the result stays in
// [0, 100] by construction.
const (
	qualityUptimeWeight     = 0.6
	qualityConfidenceWeight = 0.25
	qualityActivityWeight   = 0.15
)

// Quality combines uptime, confidence, and recent player activity into a
// single [0, 100] score. Returns nil when uptime is unknown or the window
// holds fewer than minSamples samples, so new listings are not scored
// before they have a fair amount of data.
//
// The blend is monotonic: lower uptime never raises the score, and a
// degrading confidence level (green → yellow → red) never raises it with
// the other inputs held fixed.
func Quality(uptime *float64, confidence string, samples []Sample, minSamples, playerCap int) *float64 {
	if uptime == nil || len(samples) < minSamples {
		return nil
	}

	score := qualityUptimeWeight**uptime +
		qualityConfidenceWeight*confidencePoints(confidence) +
		qualityActivityWeight*activityPoints(samples, playerCap)
	score = clamp(score, 0, 100)
	return &score
}

func confidencePoints(confidence string) float64 {
	switch confidence {
	case model.ConfidenceGreen:
		return 100
	case model.ConfidenceYellow:
		return 50
	default:
		return 0
	}
}

// activityPoints maps the window's mean player count onto [0, 100],
// saturating at playerCap so headcount inflation stops paying off at the
// same ceiling the ranking function uses.
func activityPoints(samples []Sample, playerCap int) float64 {
	if playerCap <= 0 || len(samples) == 0 {
		return 0
	}
	var total int
	for _, s := range samples {
		total += s.PlayersCurrent
	}
	mean := float64(total) / float64(len(samples))
	return clamp(mean/float64(playerCap)*100, 0, 100)
}
