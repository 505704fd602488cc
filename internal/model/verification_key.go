package model

import "time"

// VerificationKey binds an ed25519 public key to a server or a cluster at
// a specific key version. Rotation inserts a new version; old versions
// keep verifying until revoked.
type VerificationKey struct {
	ID         string     `json:"id" db:"id"`
	ServerID   *string    `json:"server_id,omitempty" db:"server_id"`
	ClusterID  *string    `json:"cluster_id,omitempty" db:"cluster_id"`
	KeyVersion int        `json:"key_version" db:"key_version"`
	PublicKey  []byte     `json:"public_key" db:"public_key"`
	// GraceOverride replaces the global grace window for servers covered
	// by this key, in seconds. Nil means use the global default.
	GraceOverride *int       `json:"grace_override_secs,omitempty" db:"grace_override_secs"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// ResolvedKey is the tagged result of a key lookup: the key plus whether
// it was bound at server or cluster scope.
type ResolvedKey struct {
	Key   *VerificationKey
	Scope string
}
