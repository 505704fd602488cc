package model

import "time"

// Heartbeat is one accepted agent report. Rows are append-only: written
// once by the ingestion path and never updated, so (server_id,
// heartbeat_id) doubles as the permanent replay guard.
type Heartbeat struct {
	ServerID       string    `json:"server_id" db:"server_id"`
	HeartbeatID    string    `json:"heartbeat_id" db:"heartbeat_id"`
	KeyVersion     int       `json:"key_version" db:"key_version"`
	ReceivedAt     time.Time `json:"received_at" db:"received_at"`
	AgentTimestamp time.Time `json:"agent_timestamp" db:"agent_timestamp"`
	Status         string    `json:"status" db:"status"`
	PlayersCurrent int       `json:"players_current" db:"players_current"`
	PlayersMax     int       `json:"players_max" db:"players_max"`
	MapName        string    `json:"map_name" db:"map_name"`
	AgentVersion   string    `json:"agent_version" db:"agent_version"`
	Payload        []byte    `json:"-" db:"payload"`
	Signature      []byte    `json:"-" db:"signature"`
}
