package model

import "time"

// Job is one pending recompute for a server. At most one row per server
// has processed_at IS NULL; bursts of heartbeats coalesce into it.
type Job struct {
	ID          string     `json:"id" db:"id"`
	ServerID    string     `json:"server_id" db:"server_id"`
	EnqueuedAt  time.Time  `json:"enqueued_at" db:"enqueued_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty" db:"claimed_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	Attempts    int        `json:"attempts" db:"attempts"`
	LastError   *string    `json:"last_error,omitempty" db:"last_error"`
}
