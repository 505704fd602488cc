package model

import "time"

// Rejection reason codes recorded in the audit trail. These mirror the
// submission error kinds; the raw payload is never stored.
const (
	RejectMalformedPayload  = "malformed_payload"
	RejectUnknownServer     = "unknown_server"
	RejectUnknownKeyVersion = "unknown_key_version"
	RejectSignatureInvalid  = "signature_invalid"
	RejectStaleTimestamp    = "stale_timestamp"
	RejectReplayDetected    = "replay_detected"
)

// RejectedReport is one audit row for a refused heartbeat submission.
type RejectedReport struct {
	ID          string    `json:"id" db:"id"`
	ServerID    *string   `json:"server_id,omitempty" db:"server_id"`
	HeartbeatID *string   `json:"heartbeat_id,omitempty" db:"heartbeat_id"`
	Reason      string    `json:"reason" db:"reason"`
	Detail      string    `json:"detail,omitempty" db:"detail"`
	SourceIP    *string   `json:"source_ip,omitempty" db:"source_ip"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
