// Package engine holds the pure derivation functions of the heartbeat
// pipeline. Every function takes its inputs and the current time
// explicitly and performs no I/O, so recomputation is deterministic and
// idempotent: the same heartbeat history and the same "now" always yield
// the same derived state.
package engine

import "time"

// Sample is one accepted heartbeat projected to the fields the engines
// consume. ReceivedAt is the receiver-side timestamp; agent-reported
// timestamps are never used for window math.
type Sample struct {
	ReceivedAt     time.Time
	PlayersCurrent int
	PlayersMax     int
}
