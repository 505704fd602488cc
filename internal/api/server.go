// Package api wires the HTTP surface: the public submission and
// directory endpoints, the token-guarded admin endpoints, and the
// operational endpoints (health, readiness, metrics).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/serverdir/internal/api/handler"
	mw "github.com/edvin/serverdir/internal/api/middleware"
	"github.com/edvin/serverdir/internal/api/response"
	"github.com/edvin/serverdir/internal/config"
	"github.com/edvin/serverdir/internal/core"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	corePool *pgxpool.Pool
	cfg      *config.Config
}

func NewServer(logger zerolog.Logger, coreDB *pgxpool.Pool, cfg *config.Config) *Server {
	services := core.NewServices(coreDB, logger, cfg.StalenessTolerance)

	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: services,
		corePool: coreDB,
		cfg:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	ipLimiter := mw.NewRateLimiter(s.cfg.SubmitRatePerMin, s.cfg.SubmitBurst)
	serverLimiter := mw.NewRateLimiter(s.cfg.SubmitRatePerMin, s.cfg.SubmitBurst)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Heartbeat ingestion, authenticated by signature rather than
		// by a session.
		heartbeat := handler.NewHeartbeat(s.services.Heartbeat, serverLimiter, s.cfg.TrustProxy)
		r.With(mw.SubmitRateLimit(ipLimiter, s.cfg.TrustProxy)).
			Post("/heartbeats", heartbeat.Submit)

		// Public directory reads.
		directory := handler.NewDirectory(s.services.Directory)
		r.Get("/directory", directory.List)

		// Operator endpoints.
		r.Group(func(r chi.Router) {
			r.Use(mw.AdminAuth(s.cfg.AdminToken))

			server := handler.NewServer(s.services.Server, s.services.ServerState)
			r.Post("/servers", server.Create)
			r.Get("/servers/{id}", server.Get)

			key := handler.NewKey(s.services.Key)
			r.Post("/keys", key.Register)
			r.Delete("/keys/{id}", key.Revoke)

			job := handler.NewJob(s.services.Job)
			r.Get("/jobs/failed", job.ListFailed)

			report := handler.NewReport(s.services.RejectedReport)
			r.Get("/servers/{id}/rejected-reports", report.ListByServer)
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	response.WriteJSON(w, status, checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
