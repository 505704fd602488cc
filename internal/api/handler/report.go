package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/serverdir/internal/api/request"
	"github.com/edvin/serverdir/internal/api/response"
	"github.com/edvin/serverdir/internal/core"
	"github.com/edvin/serverdir/internal/model"
)

type Report struct {
	svc *core.RejectedReportService
}

func NewReport(svc *core.RejectedReportService) *Report {
	return &Report{svc: svc}
}

// ListByServer returns recent rejected submissions for a listing.
func (h *Report) ListByServer(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
	}

	reports, err := h.svc.ListByServer(r.Context(), id, limit)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	if reports == nil {
		reports = []model.RejectedReport{}
	}
	response.WriteJSON(w, http.StatusOK, reports)
}
