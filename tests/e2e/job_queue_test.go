package e2e

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/serverdir/internal/core"
	"github.com/edvin/serverdir/internal/model"
)

// Workers racing for the same pending job must resolve to exactly one
// winner. The mock-based queue tests check query shape only; this runs the
// FOR UPDATE SKIP LOCKED claim against real Postgres.
func TestJobClaim_ConcurrentClaimsSingleWinner(t *testing.T) {
	pool := newPool(t)
	jobs := core.NewJobService(pool)
	ctx := context.Background()

	serverID := createTestServer(t, pool)
	enqueued, err := jobs.Enqueue(ctx, serverID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, enqueued)

	const workers = 8
	var wg sync.WaitGroup
	claims := make(chan *model.Job, workers)
	errs := make(chan error, workers)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			job, err := jobs.Claim(ctx, 2*time.Minute, time.Now().UTC())
			if err != nil {
				errs <- err
				return
			}
			claims <- job
		}()
	}
	close(start)
	wg.Wait()
	close(claims)
	close(errs)

	for err := range errs {
		t.Fatalf("claim: %v", err)
	}

	winners := 0
	for job := range claims {
		if job != nil && job.ServerID == serverID {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestJobEnqueue_CoalescesPendingJob(t *testing.T) {
	pool := newPool(t)
	jobs := core.NewJobService(pool)
	ctx := context.Background()

	serverID := createTestServer(t, pool)

	first, err := jobs.Enqueue(ctx, serverID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, first)

	second, err := jobs.Enqueue(ctx, serverID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, second)
}
