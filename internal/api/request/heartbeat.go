package request

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/edvin/serverdir/internal/crypto"
)

// SubmitHeartbeat is one signed heartbeat envelope on the wire. The
// signature rides alongside the signed fields, base64 encoded.
type SubmitHeartbeat struct {
	ServerID       string    `json:"server_id" validate:"required"`
	HeartbeatID    string    `json:"heartbeat_id" validate:"required"`
	KeyVersion     int       `json:"key_version" validate:"required,min=1"`
	Status         string    `json:"status" validate:"required,oneof=online offline"`
	PlayersCurrent int       `json:"players_current" validate:"min=0"`
	PlayersMax     int       `json:"players_max" validate:"min=0"`
	MapName        string    `json:"map_name"`
	AgentVersion   string    `json:"agent_version"`
	AgentTimestamp time.Time `json:"agent_timestamp" validate:"required"`
	Signature      string    `json:"signature" validate:"required"`
}

// Envelope maps the wire fields onto the signable envelope.
func (req *SubmitHeartbeat) Envelope() crypto.Envelope {
	return crypto.Envelope{
		ServerID:       req.ServerID,
		HeartbeatID:    req.HeartbeatID,
		KeyVersion:     req.KeyVersion,
		Status:         req.Status,
		PlayersCurrent: req.PlayersCurrent,
		PlayersMax:     req.PlayersMax,
		MapName:        req.MapName,
		AgentVersion:   req.AgentVersion,
		AgentTimestamp: req.AgentTimestamp,
	}
}

// DecodeSignature decodes the base64 signature bytes.
func (req *SubmitHeartbeat) DecodeSignature() ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	return sig, nil
}
