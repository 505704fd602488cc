package handler

import (
	"net/http"
	"time"

	mw "github.com/edvin/serverdir/internal/api/middleware"
	"github.com/edvin/serverdir/internal/api/request"
	"github.com/edvin/serverdir/internal/api/response"
	"github.com/edvin/serverdir/internal/core"
	"github.com/edvin/serverdir/internal/metrics"
)

// Heartbeat accepts signed heartbeat submissions. Besides the per-IP
// limit applied in middleware, a per-server limiter caps how fast any
// single listing can submit regardless of how many addresses it uses.
type Heartbeat struct {
	svc           *core.HeartbeatService
	serverLimiter *mw.RateLimiter
	trustProxy    bool
}

func NewHeartbeat(svc *core.HeartbeatService, serverLimiter *mw.RateLimiter, trustProxy bool) *Heartbeat {
	return &Heartbeat{svc: svc, serverLimiter: serverLimiter, trustProxy: trustProxy}
}

// kindStatus maps rejection kinds to HTTP status codes.
var kindStatus = map[string]int{
	core.KindMalformedPayload:  http.StatusBadRequest,
	core.KindUnknownServer:     http.StatusNotFound,
	core.KindUnknownKeyVersion: http.StatusUnauthorized,
	core.KindSignatureInvalid:  http.StatusUnauthorized,
	core.KindStaleTimestamp:    http.StatusBadRequest,
	core.KindReplayDetected:    http.StatusConflict,
	core.KindRateLimited:       http.StatusTooManyRequests,
}

func (h *Heartbeat) Submit(w http.ResponseWriter, r *http.Request) {
	sourceIP := mw.GetRealIP(r, h.trustProxy)

	var req request.SubmitHeartbeat
	if err := request.Decode(r, &req); err != nil {
		h.svc.RecordMalformed(r.Context(), req.ServerID, sourceIP, err.Error())
		h.reject(w, core.KindMalformedPayload, err.Error())
		return
	}

	sig, err := req.DecodeSignature()
	if err != nil {
		h.svc.RecordMalformed(r.Context(), req.ServerID, sourceIP, err.Error())
		h.reject(w, core.KindMalformedPayload, err.Error())
		return
	}

	if h.serverLimiter != nil && !h.serverLimiter.Allow(req.ServerID) {
		h.reject(w, core.KindRateLimited, "too many submissions for this server")
		return
	}

	sub := core.Submission{
		Envelope:  req.Envelope(),
		Signature: sig,
		SourceIP:  sourceIP,
	}
	if err := h.svc.Accept(r.Context(), sub, time.Now().UTC()); err != nil {
		if se, ok := core.AsSubmissionError(err); ok {
			h.reject(w, se.Kind, se.Message)
			return
		}
		response.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	metrics.HeartbeatsAccepted.Inc()
	response.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Heartbeat) reject(w http.ResponseWriter, kind, message string) {
	metrics.HeartbeatsRejected.WithLabelValues(kind).Inc()
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusBadRequest
	}
	response.WriteError(w, status, kind, message)
}
