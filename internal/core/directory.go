package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edvin/serverdir/internal/model"
)

// Directory page size bounds. Oversize requests are rejected rather than
// clamped so callers are never surprised by truncated results.
const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// DirectoryQuery describes one paged directory read. Filters belong to
// the listing store; sort and cursor belong to the paginator.
type DirectoryQuery struct {
	Sort      string
	Direction string
	Limit     int
	Cursor    string
	Status    string
	GameID    string
}

// DirectoryPage is the result of one paged read. Staleness is computed
// once from RequestedAt and applied to every record, so values within a
// page are internally consistent.
type DirectoryPage struct {
	Entries     []model.DirectoryEntry
	NextCursor  string
	HasMore     bool
	RequestedAt time.Time
}

// DirectoryService serves ordered pages over the derived directory data.
type DirectoryService struct {
	db DB
}

func NewDirectoryService(db DB) *DirectoryService {
	return &DirectoryService{db: db}
}

// List returns one page under a total ordering of (sort value, server id).
// Seek predicates are direction-aware so concurrent score changes can
// shift rows between adjacent pages but never duplicate or drop them
// through cursor logic alone.
func (s *DirectoryService) List(ctx context.Context, q DirectoryQuery, now time.Time) (*DirectoryPage, error) {
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit < 0 {
		return nil, ErrInvalidPageSize
	}
	if q.Limit > MaxPageSize {
		return nil, ErrPageSizeExceeded
	}
	if q.Sort == "" {
		q.Sort = SortRanking
	}
	sortExpr, ok := sortExprs[q.Sort]
	if !ok {
		return nil, ErrUnknownSortKey
	}
	if q.Direction == "" {
		q.Direction = DirectionDesc
	}
	if q.Direction != DirectionAsc && q.Direction != DirectionDesc {
		return nil, fmt.Errorf("%w %q", ErrInvalidDirection, q.Direction)
	}

	var where []string
	var args []any
	argIdx := 1

	addArg := func(v any) int {
		args = append(args, v)
		idx := argIdx
		argIdx++
		return idx
	}

	if q.Status != "" {
		where = append(where, fmt.Sprintf(`st.effective_status = $%d`, addArg(q.Status)))
	}
	if q.GameID != "" {
		where = append(where, fmt.Sprintf(`s.game_id = $%d`, addArg(q.GameID)))
	}

	if q.Cursor != "" {
		cur, err := DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		if cur.Sort != q.Sort || cur.Direction != q.Direction {
			return nil, ErrCursorMismatch
		}
		valIdx := addArg(cur.LastValue)
		idIdx := addArg(cur.LastID)
		if q.Direction == DirectionDesc {
			where = append(where, fmt.Sprintf(`(%s < $%d OR (%s = $%d AND s.id > $%d))`,
				sortExpr, valIdx, sortExpr, valIdx, idIdx))
		} else {
			where = append(where, fmt.Sprintf(`(%s > $%d OR (%s = $%d AND s.id > $%d))`,
				sortExpr, valIdx, sortExpr, valIdx, idIdx))
		}
	}

	query := `SELECT s.id, s.cluster_id, s.name, s.game_id, s.address, s.created_at, s.updated_at,
		st.server_id, st.effective_status, st.status_source, st.last_seen_at, st.confidence,
		st.uptime_pct, st.quality_score, st.ranking_score, st.players_current, st.players_max,
		st.anomaly_flagged, st.anomaly_last_at, st.ranking_updated_at, st.updated_at,
		` + sortExpr + ` AS sort_value
		FROM servers s
		JOIN server_states st ON st.server_id = s.id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	dir := "DESC"
	if q.Direction == DirectionAsc {
		dir = "ASC"
	}
	query += fmt.Sprintf(` ORDER BY sort_value %s, s.id ASC LIMIT $%d`, dir, addArg(q.Limit+1))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	defer rows.Close()

	type pagedRow struct {
		entry     model.DirectoryEntry
		sortValue float64
	}
	var paged []pagedRow
	for rows.Next() {
		var pr pagedRow
		srv := &pr.entry.Server
		st := &pr.entry.State
		err := rows.Scan(&srv.ID, &srv.ClusterID, &srv.Name, &srv.GameID, &srv.Address, &srv.CreatedAt, &srv.UpdatedAt,
			&st.ServerID, &st.EffectiveStatus, &st.StatusSource, &st.LastSeenAt, &st.Confidence,
			&st.UptimePct, &st.QualityScore, &st.RankingScore, &st.PlayersCurrent, &st.PlayersMax,
			&st.AnomalyFlagged, &st.AnomalyLastAt, &st.RankingUpdatedAt, &st.UpdatedAt,
			&pr.sortValue)
		if err != nil {
			return nil, fmt.Errorf("scan directory entry: %w", err)
		}
		paged = append(paged, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directory entries: %w", err)
	}

	hasMore := len(paged) > q.Limit
	if hasMore {
		paged = paged[:q.Limit]
	}

	page := &DirectoryPage{HasMore: hasMore, RequestedAt: now}
	for i := range paged {
		entry := paged[i].entry
		if entry.State.LastSeenAt != nil {
			staleness := int64(now.Sub(*entry.State.LastSeenAt).Seconds())
			entry.StalenessSeconds = &staleness
		}
		page.Entries = append(page.Entries, entry)
	}
	if hasMore && len(paged) > 0 {
		last := paged[len(paged)-1]
		page.NextCursor = EncodeCursor(Cursor{
			Sort:      q.Sort,
			Direction: q.Direction,
			LastValue: last.sortValue,
			LastID:    last.entry.Server.ID,
		})
	}
	return page, nil
}
