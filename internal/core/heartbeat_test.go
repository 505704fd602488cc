package core

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/serverdir/internal/crypto"
	"github.com/edvin/serverdir/internal/model"
)

var acceptNow = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

func newHeartbeatService(db *mockDB) *HeartbeatService {
	keys := NewKeyService(db)
	jobs := NewJobService(db)
	audit := NewRejectedReportService(db)
	return NewHeartbeatService(db, keys, jobs, audit, zerolog.Nop(), 5*time.Minute)
}

func sqlContains(substr string) any {
	return mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, substr)
	})
}

func signedSubmission(t *testing.T) (Submission, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	env := crypto.Envelope{
		ServerID:       "srv-1",
		HeartbeatID:    "hb-1",
		KeyVersion:     1,
		Status:         "online",
		PlayersCurrent: 10,
		PlayersMax:     64,
		MapName:        "chernarus",
		AgentVersion:   "1.4.2",
		AgentTimestamp: acceptNow.Add(-10 * time.Second),
	}
	sig := ed25519.Sign(priv, crypto.CanonicalBytes(env))
	return Submission{Envelope: env, Signature: sig, SourceIP: "203.0.113.9"}, pub
}

// expectServerLookup makes the servers table lookup succeed with no cluster.
func expectServerLookup(db *mockDB, ctx context.Context) {
	db.On("QueryRow", ctx, sqlContains("FROM servers"), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			*(dest[0].(**string)) = nil
			return nil
		},
	})
}

// expectKeyResolve makes the verification key lookup return a server-scoped key.
func expectKeyResolve(db *mockDB, ctx context.Context, pub []byte) {
	serverID := "srv-1"
	db.On("QueryRow", ctx, sqlContains("FROM verification_keys"), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			*(dest[0].(*string)) = "key-1"
			*(dest[1].(**string)) = &serverID
			*(dest[2].(**string)) = nil
			*(dest[3].(*int)) = 1
			*(dest[4].(*[]byte)) = pub
			*(dest[5].(**int)) = nil
			*(dest[6].(**time.Time)) = nil
			*(dest[7].(*time.Time)) = acceptNow.Add(-time.Hour)
			return nil
		},
	})
}

func TestAccept_Success(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, pub := signedSubmission(t)
	expectServerLookup(db, ctx)
	expectKeyResolve(db, ctx, pub)
	db.On("Exec", ctx, sqlContains("INSERT INTO heartbeats"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	db.On("Exec", ctx, sqlContains("INSERT INTO heartbeat_jobs"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := svc.Accept(ctx, sub, acceptNow)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestAccept_ReplayOfSameEnvelopeRejected(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, pub := signedSubmission(t)
	expectServerLookup(db, ctx)
	expectKeyResolve(db, ctx, pub)
	// Conflict on (server_id, heartbeat_id): zero rows inserted.
	db.On("Exec", ctx, sqlContains("INSERT INTO heartbeats"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)
	db.On("Exec", ctx, sqlContains("INSERT INTO rejected_reports"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := svc.Accept(ctx, sub, acceptNow)
	se, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindReplayDetected, se.Kind)

	// The duplicate never enqueues a job.
	db.AssertNotCalled(t, "Exec", ctx, sqlContains("INSERT INTO heartbeat_jobs"), mock.Anything)
}

func TestAccept_StaleTimestampRejectedBeforeCrypto(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, _ := signedSubmission(t)
	sub.Envelope.AgentTimestamp = acceptNow.Add(-time.Hour)

	db.On("Exec", ctx, sqlContains("INSERT INTO rejected_reports"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := svc.Accept(ctx, sub, acceptNow)
	se, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindStaleTimestamp, se.Kind)

	// No key lookup, no signature work, no writes beyond the audit row.
	db.AssertNotCalled(t, "QueryRow", ctx, mock.Anything, mock.Anything)
	db.AssertExpectations(t)
}

func TestAccept_FutureAgentClockAlsoStale(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, _ := signedSubmission(t)
	sub.Envelope.AgentTimestamp = acceptNow.Add(time.Hour)

	db.On("Exec", ctx, sqlContains("INSERT INTO rejected_reports"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := svc.Accept(ctx, sub, acceptNow)
	se, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindStaleTimestamp, se.Kind)
}

func TestAccept_UnknownServer(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, _ := signedSubmission(t)
	db.On("QueryRow", ctx, sqlContains("FROM servers"), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error { return pgx.ErrNoRows },
	})
	db.On("Exec", ctx, sqlContains("INSERT INTO rejected_reports"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := svc.Accept(ctx, sub, acceptNow)
	se, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnknownServer, se.Kind)
}

func TestAccept_UnknownKeyVersion(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, _ := signedSubmission(t)
	expectServerLookup(db, ctx)
	db.On("QueryRow", ctx, sqlContains("FROM verification_keys"), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error { return pgx.ErrNoRows },
	})
	db.On("Exec", ctx, sqlContains("INSERT INTO rejected_reports"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := svc.Accept(ctx, sub, acceptNow)
	se, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnknownKeyVersion, se.Kind)
}

func TestAccept_TamperedEnvelopeRejected(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, pub := signedSubmission(t)
	sub.Envelope.PlayersCurrent = 64 // signed as 10

	expectServerLookup(db, ctx)
	expectKeyResolve(db, ctx, pub)
	db.On("Exec", ctx, sqlContains("INSERT INTO rejected_reports"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := svc.Accept(ctx, sub, acceptNow)
	se, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindSignatureInvalid, se.Kind)

	db.AssertNotCalled(t, "Exec", ctx, sqlContains("INSERT INTO heartbeats"), mock.Anything)
}

func TestAccept_AppendAndEnqueueCommitTogether(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, pub := signedSubmission(t)
	expectServerLookup(db, ctx)
	expectKeyResolve(db, ctx, pub)
	db.On("Exec", ctx, sqlContains("INSERT INTO heartbeats"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	db.On("Exec", ctx, sqlContains("INSERT INTO heartbeat_jobs"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, svc.Accept(ctx, sub, acceptNow))
	assert.Equal(t, 1, db.begun)
	assert.Equal(t, 1, db.committed)
}

func TestAccept_EnqueueFailureRollsBackAppend(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, pub := signedSubmission(t)
	expectServerLookup(db, ctx)
	expectKeyResolve(db, ctx, pub)
	db.On("Exec", ctx, sqlContains("INSERT INTO heartbeats"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	db.On("Exec", ctx, sqlContains("INSERT INTO heartbeat_jobs"), mock.Anything).
		Return(pgconn.CommandTag{}, assert.AnError)

	err := svc.Accept(ctx, sub, acceptNow)
	require.Error(t, err)
	assert.Equal(t, 0, db.committed)
	assert.Equal(t, 1, db.rolledBack)
}

func TestRecordMalformed_WritesAuditRow(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	db.On("Exec", ctx, sqlContains("INSERT INTO rejected_reports"), mock.MatchedBy(func(args []any) bool {
		return len(args) == 6 && args[3] == model.RejectMalformedPayload
	})).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	svc.RecordMalformed(ctx, "", "203.0.113.9", "invalid JSON")
	db.AssertExpectations(t)
}

func TestHistory(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	hbAt := func(received time.Time, players int) func(dest ...any) error {
		return func(dest ...any) error {
			*(dest[0].(*string)) = "srv-1"
			*(dest[1].(*string)) = "hb"
			*(dest[2].(*int)) = 1
			*(dest[3].(*time.Time)) = received
			*(dest[4].(*time.Time)) = received
			*(dest[5].(*string)) = "online"
			*(dest[6].(*int)) = players
			*(dest[7].(*int)) = 64
			*(dest[8].(*string)) = "chernarus"
			*(dest[9].(*string)) = "1.4.2"
			return nil
		}
	}
	db.On("Query", ctx, sqlContains("FROM heartbeats"), mock.Anything).Return(newMockRows(
		hbAt(acceptNow.Add(-2*time.Minute), 8),
		hbAt(acceptNow.Add(-time.Minute), 12),
	), nil)

	history, err := svc.History(ctx, "srv-1", acceptNow.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 8, history[0].PlayersCurrent)
	assert.Equal(t, 12, history[1].PlayersCurrent)
}

func TestLatest_NoneIsNil(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("FROM heartbeats"), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error { return pgx.ErrNoRows },
	})

	hb, err := svc.Latest(ctx, "srv-1")
	require.NoError(t, err)
	assert.Nil(t, hb)
}

func TestAccept_AuditFailureDoesNotMaskRejection(t *testing.T) {
	db := &mockDB{}
	svc := newHeartbeatService(db)
	ctx := context.Background()

	sub, _ := signedSubmission(t)
	sub.Envelope.AgentTimestamp = acceptNow.Add(-time.Hour)

	db.On("Exec", ctx, sqlContains("INSERT INTO rejected_reports"), mock.Anything).
		Return(pgconn.CommandTag{}, assert.AnError)

	err := svc.Accept(ctx, sub, acceptNow)
	se, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindStaleTimestamp, se.Kind)
}
