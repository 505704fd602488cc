package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/serverdir/internal/model"
	"github.com/edvin/serverdir/internal/platform"
)

// JobService is the durable recompute queue. A partial unique index on
// (server_id) WHERE processed_at IS NULL keeps at most one pending job per
// server, so a burst of heartbeats coalesces into a single recompute.
type JobService struct {
	db DB
}

func NewJobService(db DB) *JobService {
	return &JobService{db: db}
}

// Enqueue inserts a pending job for the server unless one already exists.
// Returns false when the insert coalesced into an existing pending job.
func (s *JobService) Enqueue(ctx context.Context, serverID string, now time.Time) (bool, error) {
	return s.EnqueueIn(ctx, s.db, serverID, now)
}

// EnqueueIn is Enqueue running on a caller-supplied executor, typically an
// open transaction, so a heartbeat append and its recompute job commit or
// roll back together.
func (s *JobService) EnqueueIn(ctx context.Context, db DB, serverID string, now time.Time) (bool, error) {
	tag, err := db.Exec(ctx,
		`INSERT INTO heartbeat_jobs (id, server_id, enqueued_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (server_id) WHERE processed_at IS NULL DO NOTHING`,
		platform.NewID(), serverID, now,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue job for server %s: %w", serverID, err)
	}
	return tag.RowsAffected() == 1, nil
}

const jobColumns = `id, server_id, enqueued_at, claimed_at, processed_at, attempts, last_error`

func scanJob(row interface{ Scan(dest ...any) error }) (model.Job, error) {
	var j model.Job
	err := row.Scan(&j.ID, &j.ServerID, &j.EnqueuedAt, &j.ClaimedAt, &j.ProcessedAt,
		&j.Attempts, &j.LastError)
	if err != nil {
		return j, err
	}
	return j, nil
}

// Claim atomically takes the oldest claimable job: unprocessed and either
// never claimed or claimed longer ago than claimTimeout (a crashed
// worker's stale claim). FOR UPDATE SKIP LOCKED guarantees exactly one
// worker wins a given job; the losers see no claimable row. Returns nil
// when the queue is empty.
func (s *JobService) Claim(ctx context.Context, claimTimeout time.Duration, now time.Time) (*model.Job, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE heartbeat_jobs SET claimed_at = $1
		 WHERE id = (
			SELECT id FROM heartbeat_jobs
			WHERE processed_at IS NULL
			  AND (claimed_at IS NULL OR claimed_at < $2)
			ORDER BY enqueued_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		 )
		 RETURNING `+jobColumns,
		now, now.Add(-claimTimeout),
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return &job, nil
}

// Complete marks a job processed and clears attempt bookkeeping.
func (s *JobService) Complete(ctx context.Context, jobID string, now time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE heartbeat_jobs SET processed_at = $1, last_error = NULL WHERE id = $2`,
		now, jobID,
	)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}
	return nil
}

// Fail records a failed attempt. The job stays claimable for retry until
// attempts reach maxAttempts, at which point it is marked processed
// (permanently failed) so a broken server cannot generate unbounded load.
// Returns true when the job is now permanently failed.
func (s *JobService) Fail(ctx context.Context, jobID, attemptErr string, maxAttempts int, now time.Time) (bool, error) {
	var permanent bool
	err := s.db.QueryRow(ctx,
		`UPDATE heartbeat_jobs
		 SET attempts = attempts + 1,
		     last_error = $2,
		     claimed_at = NULL,
		     processed_at = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE NULL END
		 WHERE id = $1
		 RETURNING processed_at IS NOT NULL`,
		jobID, attemptErr, maxAttempts, now,
	).Scan(&permanent)
	if err != nil {
		return false, fmt.Errorf("fail job %s: %w", jobID, err)
	}
	return permanent, nil
}

// ListPermanentlyFailed returns jobs that exhausted their retries, for
// operator follow-up. Cursor pages by job id.
func (s *JobService) ListPermanentlyFailed(ctx context.Context, limit int, cursor string) ([]model.Job, bool, error) {
	query := `SELECT ` + jobColumns + ` FROM heartbeat_jobs
		 WHERE processed_at IS NOT NULL AND last_error IS NOT NULL`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list permanently failed jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate jobs: %w", err)
	}

	hasMore := len(jobs) > limit
	if hasMore {
		jobs = jobs[:limit]
	}
	return jobs, hasMore, nil
}
