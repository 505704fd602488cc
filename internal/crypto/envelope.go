package crypto

import (
	"crypto/ed25519"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// canonicalVersion prefixes every signable byte sequence so a future
// change to the field set can never collide with v1 signatures.
const canonicalVersion = "v1"

// Envelope holds the signable fields of a heartbeat submission. The field
// set is a closed allow-list: anything not listed here is excluded from
// the canonical encoding, so schema additions never silently change what
// was signed.
type Envelope struct {
	ServerID       string
	HeartbeatID    string
	KeyVersion     int
	Status         string
	PlayersCurrent int
	PlayersMax     int
	MapName        string
	AgentVersion   string
	AgentTimestamp time.Time
}

// CanonicalBytes encodes the envelope's signable fields in a fixed order
// with a newline separator. The agent timestamp is normalized to UTC
// RFC 3339 so both sides encode identical bytes regardless of zone.
func CanonicalBytes(env Envelope) []byte {
	fields := []string{
		canonicalVersion,
		env.ServerID,
		env.HeartbeatID,
		strconv.Itoa(env.KeyVersion),
		env.Status,
		strconv.Itoa(env.PlayersCurrent),
		strconv.Itoa(env.PlayersMax),
		env.MapName,
		env.AgentVersion,
		env.AgentTimestamp.UTC().Format(time.RFC3339),
	}
	return []byte(strings.Join(fields, "\n"))
}

// VerifyEnvelope checks the signature over the canonical encoding of the
// envelope against an ed25519 public key. It performs no I/O.
func VerifyEnvelope(publicKey []byte, env Envelope, signature []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("public key is %d bytes, want %d", len(publicKey), ed25519.PublicKeySize)
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey), CanonicalBytes(env), signature) {
		return fmt.Errorf("signature does not match canonical envelope")
	}
	return nil
}
