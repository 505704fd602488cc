package handler

import (
	"net/http"

	"github.com/edvin/serverdir/internal/api/request"
	"github.com/edvin/serverdir/internal/api/response"
	"github.com/edvin/serverdir/internal/core"
	"github.com/edvin/serverdir/internal/model"
)

type Job struct {
	svc *core.JobService
}

func NewJob(svc *core.JobService) *Job {
	return &Job{svc: svc}
}

// ListFailed returns recompute jobs that exhausted their retries.
func (h *Job) ListFailed(w http.ResponseWriter, r *http.Request) {
	pg, err := request.ParsePagination(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if pg.Limit <= 0 {
		pg.Limit = 50
	}

	jobs, hasMore, err := h.svc.ListPermanentlyFailed(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	nextCursor := ""
	if hasMore && len(jobs) > 0 {
		nextCursor = jobs[len(jobs)-1].ID
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	response.WritePaginated(w, http.StatusOK, jobs, nextCursor, hasMore)
}
