package request

import (
	"fmt"
	"net/http"
	"strconv"
)

// Pagination holds parsed pagination parameters. Limit bounds are
// enforced by the reader, not here; oversize requests must surface an
// error instead of silently clamping.
type Pagination struct {
	Limit  int
	Cursor string
}

// ParsePagination extracts limit and cursor from query parameters.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{
		Cursor: r.URL.Query().Get("cursor"),
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return p, fmt.Errorf("invalid limit %q", limitStr)
		}
		p.Limit = limit
	}

	return p, nil
}
