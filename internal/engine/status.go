package engine

import (
	"time"

	"github.com/edvin/serverdir/internal/model"
)

// StatusResult is the output of the status derivation.
type StatusResult struct {
	Effective  string
	Source     string
	LastSeenAt *time.Time
}

// Status derives the effective status from the most recent heartbeat
// receive time. A server is online while the last receive is within the
// grace window of now, offline once it falls outside, and unknown when no
// heartbeat has ever been received (in which case the status source stays
// manual).
func Status(lastReceived *time.Time, grace time.Duration, now time.Time) StatusResult {
	if lastReceived == nil {
		return StatusResult{
			Effective: model.StatusUnknown,
			Source:    model.StatusSourceManual,
		}
	}

	effective := model.StatusOffline
	if now.Sub(*lastReceived) <= grace {
		effective = model.StatusOnline
	}

	seen := *lastReceived
	return StatusResult{
		Effective:  effective,
		Source:     model.StatusSourceAgent,
		LastSeenAt: &seen,
	}
}
