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

type Key struct {
	svc *core.KeyService
}

func NewKey(svc *core.KeyService) *Key {
	return &Key{svc: svc}
}

func (h *Key) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterKey
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	publicKey, err := req.DecodePublicKey()
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if (req.ServerID == nil) == (req.ClusterID == nil) {
		response.WriteError(w, http.StatusBadRequest, "bad_request", "exactly one of server_id and cluster_id must be set")
		return
	}

	key := &model.VerificationKey{
		ID:            platform.NewID(),
		ServerID:      req.ServerID,
		ClusterID:     req.ClusterID,
		KeyVersion:    req.KeyVersion,
		PublicKey:     publicKey,
		GraceOverride: req.GraceOverrideSecs,
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.svc.Register(r.Context(), key); err != nil {
		response.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, key)
}

func (h *Key) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := h.svc.Revoke(r.Context(), id, time.Now().UTC()); err != nil {
		response.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
