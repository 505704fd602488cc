package engine

import "time"

// Uptime computes the percentage of the rolling window for which the
// server was considered online. Each heartbeat covers [received, received
// + grace]; overlapping intervals are merged and clipped to the window.
// Only receive timestamps participate. Returns nil when the window holds
// no samples, so cold-start servers read as unknown rather than zero.
// Samples must be ordered by ascending receive time.
func Uptime(samples []Sample, window, grace time.Duration, now time.Time) *float64 {
	windowStart := now.Add(-window)

	var covered time.Duration
	var curStart, curEnd time.Time
	open := false

	for _, s := range samples {
		start := s.ReceivedAt
		end := s.ReceivedAt.Add(grace)
		if end.Before(windowStart) || start.After(now) {
			continue
		}
		if start.Before(windowStart) {
			start = windowStart
		}
		if end.After(now) {
			end = now
		}

		if !open {
			curStart, curEnd, open = start, end, true
			continue
		}
		if !start.After(curEnd) {
			if end.After(curEnd) {
				curEnd = end
			}
			continue
		}
		covered += curEnd.Sub(curStart)
		curStart, curEnd = start, end
	}
	if !open {
		return nil
	}
	covered += curEnd.Sub(curStart)

	pct := float64(covered) / float64(window) * 100
	pct = clamp(pct, 0, 100)
	return &pct
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
