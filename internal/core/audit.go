package core

import (
	"context"
	"fmt"

	"github.com/edvin/serverdir/internal/model"
	"github.com/edvin/serverdir/internal/platform"
)

// RejectedReportService is the append-only audit trail of refused
// heartbeat submissions: reason code plus minimal context, never the raw
// payload.
type RejectedReportService struct {
	db DB
}

func NewRejectedReportService(db DB) *RejectedReportService {
	return &RejectedReportService{db: db}
}

func (s *RejectedReportService) Record(ctx context.Context, report *model.RejectedReport) error {
	if report.ID == "" {
		report.ID = platform.NewID()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO rejected_reports (id, server_id, heartbeat_id, reason, detail, source_ip, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		report.ID, report.ServerID, report.HeartbeatID, report.Reason, report.Detail, report.SourceIP,
	)
	if err != nil {
		return fmt.Errorf("record rejected report: %w", err)
	}
	return nil
}

// ListByServer returns recent rejections for a server, newest first.
func (s *RejectedReportService) ListByServer(ctx context.Context, serverID string, limit int) ([]model.RejectedReport, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, server_id, heartbeat_id, reason, detail, source_ip, created_at
		 FROM rejected_reports WHERE server_id = $1
		 ORDER BY created_at DESC LIMIT $2`, serverID, limit)
	if err != nil {
		return nil, fmt.Errorf("list rejected reports for server %s: %w", serverID, err)
	}
	defer rows.Close()

	var reports []model.RejectedReport
	for rows.Next() {
		var r model.RejectedReport
		if err := rows.Scan(&r.ID, &r.ServerID, &r.HeartbeatID, &r.Reason, &r.Detail, &r.SourceIP, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rejected report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rejected reports: %w", err)
	}
	return reports, nil
}
