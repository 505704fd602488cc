package core

import (
	"context"
	"fmt"

	"github.com/edvin/serverdir/internal/model"
)

// ServerStateService reads and writes the derived projection. Writes
// happen only from the recompute worker; a recompute persists every
// derived column in a single statement so the row is never half updated.
type ServerStateService struct {
	db DB
}

func NewServerStateService(db DB) *ServerStateService {
	return &ServerStateService{db: db}
}

const serverStateColumns = `server_id, effective_status, status_source, last_seen_at, confidence,
	uptime_pct, quality_score, ranking_score, players_current, players_max,
	anomaly_flagged, anomaly_last_at, ranking_updated_at, updated_at`

func scanServerState(row interface{ Scan(dest ...any) error }) (model.ServerState, error) {
	var st model.ServerState
	err := row.Scan(&st.ServerID, &st.EffectiveStatus, &st.StatusSource, &st.LastSeenAt, &st.Confidence,
		&st.UptimePct, &st.QualityScore, &st.RankingScore, &st.PlayersCurrent, &st.PlayersMax,
		&st.AnomalyFlagged, &st.AnomalyLastAt, &st.RankingUpdatedAt, &st.UpdatedAt)
	if err != nil {
		return st, err
	}
	return st, nil
}

func (s *ServerStateService) GetByServer(ctx context.Context, serverID string) (*model.ServerState, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+serverStateColumns+` FROM server_states WHERE server_id = $1`, serverID)
	st, err := scanServerState(row)
	if err != nil {
		return nil, fmt.Errorf("get server state %s: %w", serverID, err)
	}
	return &st, nil
}

// ApplyRecompute overwrites all derived columns for a server atomically.
func (s *ServerStateService) ApplyRecompute(ctx context.Context, st *model.ServerState) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE server_states SET
			effective_status = $2,
			status_source = $3,
			last_seen_at = $4,
			confidence = $5,
			uptime_pct = $6,
			quality_score = $7,
			ranking_score = $8,
			players_current = $9,
			players_max = $10,
			anomaly_flagged = $11,
			anomaly_last_at = $12,
			ranking_updated_at = $13,
			updated_at = now()
		 WHERE server_id = $1`,
		st.ServerID, st.EffectiveStatus, st.StatusSource, st.LastSeenAt, st.Confidence,
		st.UptimePct, st.QualityScore, st.RankingScore, st.PlayersCurrent, st.PlayersMax,
		st.AnomalyFlagged, st.AnomalyLastAt, st.RankingUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("apply recompute for server %s: %w", st.ServerID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("apply recompute for server %s: no state row", st.ServerID)
	}
	return nil
}
