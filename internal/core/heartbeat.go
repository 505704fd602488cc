package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/serverdir/internal/crypto"
	"github.com/edvin/serverdir/internal/model"
)

// HeartbeatService runs the acceptance pipeline and owns the append-only
// heartbeat log.
type HeartbeatService struct {
	db             TxDB
	keys           *KeyService
	jobs           *JobService
	audit          *RejectedReportService
	logger         zerolog.Logger
	staleTolerance time.Duration
}

func NewHeartbeatService(db TxDB, keys *KeyService, jobs *JobService, audit *RejectedReportService, logger zerolog.Logger, staleTolerance time.Duration) *HeartbeatService {
	return &HeartbeatService{
		db:             db,
		keys:           keys,
		jobs:           jobs,
		audit:          audit,
		logger:         logger,
		staleTolerance: staleTolerance,
	}
}

// Submission is one inbound heartbeat envelope plus transport context.
type Submission struct {
	Envelope  crypto.Envelope
	Signature []byte
	SourceIP  string
}

// Accept runs the pipeline: staleness guard, key resolution, signature
// verification, then a replay-guarded append and coalesced enqueue in a
// single transaction, so a stored heartbeat always has its recompute job.
// Any rejection aborts before state changes (other than the audit trail)
// and returns a SubmissionError. The staleness guard runs before
// signature verification so garbage input never reaches the crypto.
func (s *HeartbeatService) Accept(ctx context.Context, sub Submission, now time.Time) error {
	env := sub.Envelope

	drift := now.Sub(env.AgentTimestamp)
	if drift < 0 {
		drift = -drift
	}
	if drift > s.staleTolerance {
		s.recordRejection(ctx, sub, model.RejectStaleTimestamp, fmt.Sprintf("agent clock drift %s exceeds tolerance %s", drift, s.staleTolerance))
		return ErrStaleTimestamp
	}

	resolved, err := s.keys.Resolve(ctx, env.ServerID, env.KeyVersion)
	if err != nil {
		if se, ok := AsSubmissionError(err); ok {
			s.recordRejection(ctx, sub, se.Kind, "")
			return se
		}
		return fmt.Errorf("accept heartbeat for server %s: %w", env.ServerID, err)
	}

	if err := crypto.VerifyEnvelope(resolved.Key.PublicKey, env, sub.Signature); err != nil {
		s.recordRejection(ctx, sub, model.RejectSignatureInvalid, "")
		return ErrSignatureInvalid
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin heartbeat append for server %s: %w", env.ServerID, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO heartbeats (server_id, heartbeat_id, key_version, received_at, agent_timestamp,
		                         status, players_current, players_max, map_name, agent_version, payload, signature)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (server_id, heartbeat_id) DO NOTHING`,
		env.ServerID, env.HeartbeatID, env.KeyVersion, now, env.AgentTimestamp,
		env.Status, env.PlayersCurrent, env.PlayersMax, env.MapName, env.AgentVersion,
		crypto.CanonicalBytes(env), sub.Signature,
	)
	if err != nil {
		return fmt.Errorf("store heartbeat %s for server %s: %w", env.HeartbeatID, env.ServerID, err)
	}
	if tag.RowsAffected() == 0 {
		s.recordRejection(ctx, sub, model.RejectReplayDetected, "")
		return ErrReplayDetected
	}

	if _, err := s.jobs.EnqueueIn(ctx, tx, env.ServerID, now); err != nil {
		return fmt.Errorf("enqueue recompute for server %s: %w", env.ServerID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit heartbeat %s for server %s: %w", env.HeartbeatID, env.ServerID, err)
	}
	return nil
}

// RecordMalformed writes an audit entry for a submission refused before
// the pipeline runs. The envelope may be unparseable, so the server id is
// whatever the decoder recovered, possibly empty.
func (s *HeartbeatService) RecordMalformed(ctx context.Context, serverID, sourceIP, detail string) {
	s.recordRejection(ctx, Submission{
		Envelope: crypto.Envelope{ServerID: serverID},
		SourceIP: sourceIP,
	}, model.RejectMalformedPayload, detail)
}

func (s *HeartbeatService) recordRejection(ctx context.Context, sub Submission, reason, detail string) {
	report := &model.RejectedReport{
		Reason: reason,
		Detail: detail,
	}
	if sub.Envelope.ServerID != "" {
		serverID := sub.Envelope.ServerID
		report.ServerID = &serverID
	}
	if sub.Envelope.HeartbeatID != "" {
		hbID := sub.Envelope.HeartbeatID
		report.HeartbeatID = &hbID
	}
	if sub.SourceIP != "" {
		ip := sub.SourceIP
		report.SourceIP = &ip
	}
	if err := s.audit.Record(ctx, report); err != nil {
		s.logger.Error().Err(err).Str("reason", reason).Msg("failed to record rejected report")
	}
}

const heartbeatColumns = `server_id, heartbeat_id, key_version, received_at, agent_timestamp,
	status, players_current, players_max, map_name, agent_version`

func scanHeartbeat(row interface{ Scan(dest ...any) error }) (model.Heartbeat, error) {
	var hb model.Heartbeat
	err := row.Scan(&hb.ServerID, &hb.HeartbeatID, &hb.KeyVersion, &hb.ReceivedAt, &hb.AgentTimestamp,
		&hb.Status, &hb.PlayersCurrent, &hb.PlayersMax, &hb.MapName, &hb.AgentVersion)
	if err != nil {
		return hb, err
	}
	return hb, nil
}

// History returns the server's heartbeats received at or after since, in
// ascending receive order.
func (s *HeartbeatService) History(ctx context.Context, serverID string, since time.Time) ([]model.Heartbeat, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+heartbeatColumns+` FROM heartbeats
		 WHERE server_id = $1 AND received_at >= $2
		 ORDER BY received_at`, serverID, since)
	if err != nil {
		return nil, fmt.Errorf("load heartbeat history for server %s: %w", serverID, err)
	}
	defer rows.Close()

	var history []model.Heartbeat
	for rows.Next() {
		hb, err := scanHeartbeat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan heartbeat: %w", err)
		}
		history = append(history, hb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heartbeats: %w", err)
	}
	return history, nil
}

// Latest returns the most recently received heartbeat for the server, or
// nil if none exists.
func (s *HeartbeatService) Latest(ctx context.Context, serverID string) (*model.Heartbeat, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+heartbeatColumns+` FROM heartbeats
		 WHERE server_id = $1
		 ORDER BY received_at DESC LIMIT 1`, serverID)
	hb, err := scanHeartbeat(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest heartbeat for server %s: %w", serverID, err)
	}
	return &hb, nil
}
