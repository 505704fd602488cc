// Package worker drains the recompute queue: it claims jobs, replays the
// derivation engines over the server's heartbeat history, and persists the
// resulting state projection.
package worker

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/serverdir/internal/config"
	"github.com/edvin/serverdir/internal/core"
	"github.com/edvin/serverdir/internal/engine"
	"github.com/edvin/serverdir/internal/metrics"
	"github.com/edvin/serverdir/internal/model"
)

type jobQueue interface {
	Claim(ctx context.Context, claimTimeout time.Duration, now time.Time) (*model.Job, error)
	Complete(ctx context.Context, jobID string, now time.Time) error
	Fail(ctx context.Context, jobID, attemptErr string, maxAttempts int, now time.Time) (bool, error)
}

type heartbeatLog interface {
	Latest(ctx context.Context, serverID string) (*model.Heartbeat, error)
	History(ctx context.Context, serverID string, since time.Time) ([]model.Heartbeat, error)
}

type stateStore interface {
	GetByServer(ctx context.Context, serverID string) (*model.ServerState, error)
	ApplyRecompute(ctx context.Context, st *model.ServerState) error
}

type graceSource interface {
	GraceFor(ctx context.Context, serverID string, fallback time.Duration) (time.Duration, error)
}

// Runner processes recompute jobs one at a time. Several runners can poll
// the same queue concurrently; the claim query guarantees each job goes to
// exactly one of them.
type Runner struct {
	jobs       jobQueue
	heartbeats heartbeatLog
	states     stateStore
	grace      graceSource
	cfg        *config.Config
	logger     zerolog.Logger
	now        func() time.Time
}

func NewRunner(services *core.Services, cfg *config.Config, logger zerolog.Logger) *Runner {
	return &Runner{
		jobs:       services.Job,
		heartbeats: services.Heartbeat,
		states:     services.ServerState,
		grace:      services.Key,
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run polls the queue until the context is cancelled. After draining the
// queue it sleeps for the poll interval before looking again.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.WorkerPollInterval)
	defer ticker.Stop()

	for {
		for {
			if ctx.Err() != nil {
				return nil
			}
			claimed, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.Error().Err(err).Msg("recompute pass failed")
				break
			}
			if !claimed {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce claims and processes at most one job. Returns whether a job was
// claimed. An engine or persistence failure is recorded on the job for
// retry and is not returned as an error; only queue-level failures are.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	now := r.now()
	job, err := r.jobs.Claim(ctx, r.cfg.ClaimTimeout, now)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	if err := r.recompute(ctx, job.ServerID, now); err != nil {
		permanent, failErr := r.jobs.Fail(ctx, job.ID, err.Error(), r.cfg.MaxAttempts, r.now())
		if failErr != nil {
			r.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("failed to record job failure")
			return true, failErr
		}
		metrics.RecomputeJobsFailed.WithLabelValues(strconv.FormatBool(permanent)).Inc()
		evt := r.logger.Warn()
		if permanent {
			evt = r.logger.Error()
		}
		evt.Err(err).
			Str("job_id", job.ID).
			Str("server_id", job.ServerID).
			Int("attempts", job.Attempts+1).
			Bool("permanent", permanent).
			Msg("recompute failed")
		return true, nil
	}

	if err := r.jobs.Complete(ctx, job.ID, r.now()); err != nil {
		return true, err
	}
	metrics.RecomputeJobsProcessed.Inc()
	r.logger.Debug().Str("job_id", job.ID).Str("server_id", job.ServerID).Msg("recompute complete")
	return true, nil
}

// recompute replays the engines over the observation window and persists
// the full projection in one write. The engines run in a fixed order
// because later ones consume earlier outputs: status, confidence, uptime,
// quality, anomaly, ranking.
func (r *Runner) recompute(ctx context.Context, serverID string, now time.Time) error {
	prior, err := r.states.GetByServer(ctx, serverID)
	if err != nil {
		return err
	}

	grace, err := r.grace.GraceFor(ctx, serverID, r.cfg.GraceWindow)
	if err != nil {
		return err
	}

	latest, err := r.heartbeats.Latest(ctx, serverID)
	if err != nil {
		return err
	}

	history, err := r.heartbeats.History(ctx, serverID, now.Add(-r.cfg.ObservationWindow))
	if err != nil {
		return err
	}

	samples := make([]engine.Sample, len(history))
	for i, hb := range history {
		samples[i] = engine.Sample{
			ReceivedAt:     hb.ReceivedAt,
			PlayersCurrent: hb.PlayersCurrent,
			PlayersMax:     hb.PlayersMax,
		}
	}

	var lastReceived *time.Time
	if latest != nil {
		t := latest.ReceivedAt
		lastReceived = &t
	}

	status := engine.Status(lastReceived, grace, now)

	// A state row that has never been through a recompute still carries
	// its creation defaults; those do not constrain the first derivation.
	hasPrior := prior.RankingUpdatedAt != nil
	confidence := engine.NextConfidence(prior.Confidence, hasPrior, lastReceived, len(samples), r.cfg.MinSamples, grace, now)

	uptime := engine.Uptime(samples, r.cfg.ObservationWindow, grace, now)
	quality := engine.Quality(uptime, confidence, samples, r.cfg.MinSamples, r.cfg.RankingPlayerCap)
	anomaly := engine.Anomaly(samples, prior.AnomalyLastAt, r.cfg.AnomalySpikeWindow, r.cfg.AnomalyQuietPeriod, now)

	playersCurrent, playersMax := 0, 0
	if latest != nil {
		playersCurrent, playersMax = latest.PlayersCurrent, latest.PlayersMax
	}

	ranking := engine.Ranking(engine.RankingInputs{
		QualityScore:   quality,
		UptimePct:      uptime,
		PlayersCurrent: playersCurrent,
		AnomalyFlagged: anomaly.Flagged,
	}, r.cfg.RankingPlayerCap, r.cfg.RankingUptimeKnee, r.cfg.RankingAnomalyPenalty)

	rankedAt := now
	return r.states.ApplyRecompute(ctx, &model.ServerState{
		ServerID:         serverID,
		EffectiveStatus:  status.Effective,
		StatusSource:     status.Source,
		LastSeenAt:       status.LastSeenAt,
		Confidence:       confidence,
		UptimePct:        uptime,
		QualityScore:     quality,
		RankingScore:     ranking,
		PlayersCurrent:   playersCurrent,
		PlayersMax:       playersMax,
		AnomalyFlagged:   anomaly.Flagged,
		AnomalyLastAt:    anomaly.LastDetectedAt,
		RankingUpdatedAt: &rankedAt,
	})
}

// RunPool fans out count runners over the shared queue and blocks until
// the context is cancelled and all runners have stopped.
func RunPool(ctx context.Context, count int, services *core.Services, cfg *config.Config, logger zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		runner := NewRunner(services, cfg, logger.With().Int("runner", i).Logger())
		g.Go(func() error {
			return runner.Run(ctx)
		})
	}
	return g.Wait()
}
