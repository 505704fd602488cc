package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/serverdir/internal/model"
)

// KeyService is the verification key registry: ed25519 public keys bound
// to a single server or to a whole cluster at a given key version.
type KeyService struct {
	db DB
}

func NewKeyService(db DB) *KeyService {
	return &KeyService{db: db}
}

func (s *KeyService) Register(ctx context.Context, key *model.VerificationKey) error {
	if (key.ServerID == nil) == (key.ClusterID == nil) {
		return fmt.Errorf("register key: exactly one of server_id and cluster_id must be set")
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO verification_keys (id, server_id, cluster_id, key_version, public_key, grace_override_secs, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.ServerID, key.ClusterID, key.KeyVersion, key.PublicKey,
		key.GraceOverride, key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("register verification key: %w", err)
	}
	return nil
}

// Revoke marks a key version unusable. Heartbeats signed with it stop
// verifying immediately; other versions are unaffected.
func (s *KeyService) Revoke(ctx context.Context, id string, now time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE verification_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("revoke verification key %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("revoke verification key %s: not found or already revoked", id)
	}
	return nil
}

const keyColumns = `id, server_id, cluster_id, key_version, public_key, grace_override_secs, revoked_at, created_at`

func scanKey(row interface{ Scan(dest ...any) error }) (model.VerificationKey, error) {
	var k model.VerificationKey
	err := row.Scan(&k.ID, &k.ServerID, &k.ClusterID, &k.KeyVersion, &k.PublicKey,
		&k.GraceOverride, &k.RevokedAt, &k.CreatedAt)
	if err != nil {
		return k, err
	}
	return k, nil
}

// Resolve returns the active public key for the given server and key
// version as a tagged result. A key bound directly to the server wins
// over one bound to its cluster. Returns ErrUnknownServer when no listing
// exists and ErrUnknownKeyVersion when the listing has no active key at
// that version; never a default key.
func (s *KeyService) Resolve(ctx context.Context, serverID string, keyVersion int) (*model.ResolvedKey, error) {
	var clusterID *string
	err := s.db.QueryRow(ctx, `SELECT cluster_id FROM servers WHERE id = $1`, serverID).Scan(&clusterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownServer
		}
		return nil, fmt.Errorf("look up server %s: %w", serverID, err)
	}

	row := s.db.QueryRow(ctx,
		`SELECT `+keyColumns+`
		 FROM verification_keys
		 WHERE key_version = $2 AND revoked_at IS NULL
		   AND (server_id = $1 OR (cluster_id IS NOT NULL AND cluster_id = $3))
		 ORDER BY server_id NULLS LAST
		 LIMIT 1`,
		serverID, keyVersion, clusterID,
	)
	key, err := scanKey(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownKeyVersion
		}
		return nil, fmt.Errorf("resolve key for server %s version %d: %w", serverID, keyVersion, err)
	}

	scope := model.KeyScopeCluster
	if key.ServerID != nil {
		scope = model.KeyScopeServer
	}
	return &model.ResolvedKey{Key: &key, Scope: scope}, nil
}

// GraceFor returns the effective grace window for a server: the override
// on its most specific active key, else the global default.
func (s *KeyService) GraceFor(ctx context.Context, serverID string, global time.Duration) (time.Duration, error) {
	var override *int
	err := s.db.QueryRow(ctx,
		`SELECT vk.grace_override_secs
		 FROM verification_keys vk
		 JOIN servers srv ON srv.id = $1
		 WHERE vk.revoked_at IS NULL
		   AND (vk.server_id = srv.id OR (vk.cluster_id IS NOT NULL AND vk.cluster_id = srv.cluster_id))
		 ORDER BY vk.server_id NULLS LAST, vk.key_version DESC
		 LIMIT 1`,
		serverID,
	).Scan(&override)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return global, nil
		}
		return 0, fmt.Errorf("look up grace window for server %s: %w", serverID, err)
	}
	if override == nil || *override <= 0 {
		return global, nil
	}
	return time.Duration(*override) * time.Second, nil
}
