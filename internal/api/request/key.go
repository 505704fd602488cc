package request

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

// RegisterKey registers an ed25519 public key for a server or a cluster.
// Exactly one of server_id and cluster_id must be set.
type RegisterKey struct {
	ServerID          *string `json:"server_id,omitempty"`
	ClusterID         *string `json:"cluster_id,omitempty"`
	KeyVersion        int     `json:"key_version" validate:"required,min=1"`
	PublicKey         string  `json:"public_key" validate:"required"`
	GraceOverrideSecs *int    `json:"grace_override_secs,omitempty" validate:"omitempty,min=1"`
}

// DecodePublicKey decodes and size-checks the base64 public key.
func (req *RegisterKey) DecodePublicKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid public key encoding: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key is %d bytes, want %d", len(key), ed25519.PublicKeySize)
	}
	return key, nil
}
