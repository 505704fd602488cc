package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/serverdir/internal/api/request"
	"github.com/edvin/serverdir/internal/api/response"
	"github.com/edvin/serverdir/internal/core"
	"github.com/edvin/serverdir/internal/model"
	"github.com/edvin/serverdir/internal/platform"
)

type Server struct {
	servers *core.ServerService
	states  *core.ServerStateService
}

func NewServer(servers *core.ServerService, states *core.ServerStateService) *Server {
	return &Server{servers: servers, states: states}
}

func (h *Server) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateServer
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	now := time.Now().UTC()
	server := &model.Server{
		ID:        platform.NewID(),
		ClusterID: req.ClusterID,
		Name:      req.Name,
		GameID:    req.GameID,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.servers.Create(r.Context(), server); err != nil {
		response.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, server)
}

func (h *Server) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	server, err := h.servers.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	state, err := h.states.GetByServer(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, model.DirectoryEntry{Server: *server, State: *state})
}
