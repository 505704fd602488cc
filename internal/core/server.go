package core

import (
	"context"
	"fmt"

	"github.com/edvin/serverdir/internal/model"
)

// ServerService owns the server listing rows. Creating a listing also
// creates its derived-state row with neutral defaults; from then on the
// derived columns are mutated only by the recompute worker.
type ServerService struct {
	db DB
}

func NewServerService(db DB) *ServerService {
	return &ServerService{db: db}
}

func (s *ServerService) Create(ctx context.Context, server *model.Server) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO servers (id, cluster_id, name, game_id, address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		server.ID, server.ClusterID, server.Name, server.GameID, server.Address,
		server.CreatedAt, server.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO server_states (server_id, effective_status, status_source, confidence, ranking_score, updated_at)
		 VALUES ($1, $2, $3, $4, 0, now())`,
		server.ID, model.StatusUnknown, model.StatusSourceManual, model.ConfidenceRed,
	)
	if err != nil {
		return fmt.Errorf("create server state for %s: %w", server.ID, err)
	}
	return nil
}

const serverColumns = `id, cluster_id, name, game_id, address, created_at, updated_at`

func scanServer(row interface{ Scan(dest ...any) error }) (model.Server, error) {
	var srv model.Server
	err := row.Scan(&srv.ID, &srv.ClusterID, &srv.Name, &srv.GameID, &srv.Address,
		&srv.CreatedAt, &srv.UpdatedAt)
	if err != nil {
		return srv, err
	}
	return srv, nil
}

func (s *ServerService) GetByID(ctx context.Context, id string) (*model.Server, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE id = $1`, id,
	)
	srv, err := scanServer(row)
	if err != nil {
		return nil, fmt.Errorf("get server %s: %w", id, err)
	}
	return &srv, nil
}
