package model

import "time"

// ServerState is the derived projection the directory serves. Created
// with neutral defaults alongside the listing, mutated only by the
// recompute worker.
type ServerState struct {
	ServerID         string     `json:"server_id" db:"server_id"`
	EffectiveStatus  string     `json:"effective_status" db:"effective_status"`
	StatusSource     string     `json:"status_source" db:"status_source"`
	LastSeenAt       *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`
	Confidence       string     `json:"confidence" db:"confidence"`
	UptimePct        *float64   `json:"uptime_pct,omitempty" db:"uptime_pct"`
	QualityScore     *float64   `json:"quality_score,omitempty" db:"quality_score"`
	RankingScore     float64    `json:"ranking_score" db:"ranking_score"`
	PlayersCurrent   int        `json:"players_current" db:"players_current"`
	PlayersMax       int        `json:"players_max" db:"players_max"`
	AnomalyFlagged   bool       `json:"anomaly_flagged" db:"anomaly_flagged"`
	AnomalyLastAt    *time.Time `json:"anomaly_last_at,omitempty" db:"anomaly_last_at"`
	RankingUpdatedAt *time.Time `json:"ranking_updated_at,omitempty" db:"ranking_updated_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// DirectoryEntry is one row of a paged directory read: the listing, its
// derived state, and the staleness of its last sighting relative to the
// request time.
type DirectoryEntry struct {
	Server           Server      `json:"server"`
	State            ServerState `json:"state"`
	StalenessSeconds *int64      `json:"staleness_seconds,omitempty"`
}
