package core

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Directory sort keys. Every key pairs with the server id as tie-breaker
// so the ordering is total even when scores collide.
const (
	SortRanking  = "ranking"
	SortQuality  = "quality"
	SortUptime   = "uptime"
	SortPlayers  = "players"
	SortLastSeen = "last_seen"
)

const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// sortExprs maps sort keys to SQL expressions over the directory join.
// Nullable numerics are coalesced to zero so seek comparisons stay total;
// last_seen is compared as epoch seconds for the same reason.
var sortExprs = map[string]string{
	SortRanking:  `st.ranking_score`,
	SortQuality:  `COALESCE(st.quality_score, 0)`,
	SortUptime:   `COALESCE(st.uptime_pct, 0)`,
	SortPlayers:  `st.players_current::float8`,
	SortLastSeen: `COALESCE(EXTRACT(EPOCH FROM st.last_seen_at), 0)`,
}

// Cursor pins a page position: the sort key and direction it was issued
// for plus the last-seen (key value, id) pair. Serialized opaquely; a
// cursor replayed against a different sort key or direction is rejected,
// never reinterpreted.
type Cursor struct {
	Sort      string  `json:"s"`
	Direction string  `json:"d"`
	LastValue float64 `json:"v"`
	LastID    string  `json:"id"`
}

func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	if _, ok := sortExprs[c.Sort]; !ok {
		return Cursor{}, fmt.Errorf("decode cursor: %w", ErrUnknownSortKey)
	}
	if c.Direction != DirectionAsc && c.Direction != DirectionDesc {
		return Cursor{}, fmt.Errorf("%w %q", ErrInvalidDirection, c.Direction)
	}
	return c, nil
}
