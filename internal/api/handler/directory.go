package handler

import (
	"net/http"
	"time"

	"github.com/edvin/serverdir/internal/api/request"
	"github.com/edvin/serverdir/internal/api/response"
	"github.com/edvin/serverdir/internal/core"
	"github.com/edvin/serverdir/internal/model"
)

type Directory struct {
	svc *core.DirectoryService
}

func NewDirectory(svc *core.DirectoryService) *Directory {
	return &Directory{svc: svc}
}

type directoryPage struct {
	Items       []model.DirectoryEntry `json:"items"`
	NextCursor  string                 `json:"next_cursor,omitempty"`
	HasMore     bool                   `json:"has_more"`
	RequestedAt time.Time              `json:"requested_at"`
}

func (h *Directory) List(w http.ResponseWriter, r *http.Request) {
	pg, err := request.ParsePagination(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	q := core.DirectoryQuery{
		Sort:      r.URL.Query().Get("sort"),
		Direction: r.URL.Query().Get("direction"),
		Limit:     pg.Limit,
		Cursor:    pg.Cursor,
		Status:    r.URL.Query().Get("status"),
		GameID:    r.URL.Query().Get("game_id"),
	}

	page, err := h.svc.List(r.Context(), q, time.Now().UTC())
	if err != nil {
		if core.IsQueryRejection(err) {
			response.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	items := page.Entries
	if items == nil {
		items = []model.DirectoryEntry{}
	}
	response.WriteJSON(w, http.StatusOK, directoryPage{
		Items:       items,
		NextCursor:  page.NextCursor,
		HasMore:     page.HasMore,
		RequestedAt: page.RequestedAt,
	})
}
