package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hms-server/internal/domain/outbox"
	"hms-server/pkg/database"
)

// newTestPool connects to the database named by TEST_DATABASE_URL and
// prepares a clean outbox table. Tests using it are skipped when the
// variable is unset so the suite stays runnable without infrastructure.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	require.NoError(t, database.ApplyRawMigrations(ctx, pool, filepath.Join("..", "..", "migrations")))
	_, err = pool.Exec(ctx, `TRUNCATE outbox_entries`)
	require.NoError(t, err)
	return pool
}

func seedEntries(t *testing.T, pool *pgxpool.Pool, n int) []uuid.UUID {
	t.Helper()
	ctx := context.Background()
	repo := NewOutboxRepository(pool)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	tenantID := uuid.New()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		e := outbox.NewEntry(tenantID, uuid.New(), outbox.EventAppointmentCreated, []byte(`{"appointment":{}}`))
		require.NoError(t, repo.Append(ctx, tx, e))
		ids = append(ids, e.ID)
	}
	require.NoError(t, tx.Commit(ctx))
	return ids
}

func TestClaimBatchConcurrentClaimsAreDisjoint(t *testing.T) {
	pool := newTestPool(t)
	repo := NewOutboxRepository(pool)
	ctx := context.Background()

	const total = 20
	seedEntries(t, pool, total)

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([][]outbox.Entry, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = repo.ClaimBatch(ctx, total/2)
		}(i)
	}
	close(start)
	wg.Wait()

	seen := make(map[uuid.UUID]bool)
	claimed := 0
	for i := range results {
		require.NoError(t, errs[i])
		for _, e := range results[i] {
			assert.False(t, seen[e.ID], "entry %s claimed by both batches", e.ID)
			seen[e.ID] = true
			assert.Equal(t, 1, e.Attempts)
			assert.NotNil(t, e.LockedAt)
			assert.Nil(t, e.ProcessedAt)
			claimed++
		}
	}
	assert.Equal(t, total, claimed)
}

func TestClaimBatchReclaimsStaleLeases(t *testing.T) {
	pool := newTestPool(t)
	repo := NewOutboxRepository(pool)
	ctx := context.Background()
	ids := seedEntries(t, pool, 1)

	first, err := repo.ClaimBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, ids[0], first[0].ID)
	assert.Equal(t, 1, first[0].Attempts)

	// A live lease is not claimable.
	second, err := repo.ClaimBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, second)

	// Age the lease past the staleness window.
	_, err = pool.Exec(ctx, `UPDATE outbox_entries SET locked_at = now() - interval '10 minutes' WHERE id = $1`, ids[0])
	require.NoError(t, err)

	third, err := repo.ClaimBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, ids[0], third[0].ID)
	assert.Equal(t, 2, third[0].Attempts)
}

func TestClaimBatchSkipsProcessedEntries(t *testing.T) {
	pool := newTestPool(t)
	repo := NewOutboxRepository(pool)
	ctx := context.Background()
	ids := seedEntries(t, pool, 1)

	claimed, err := repo.ClaimBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, repo.MarkProcessed(ctx, ids[0]))

	// Even a stale lease on a processed entry must not resurrect it.
	_, err = pool.Exec(ctx, `UPDATE outbox_entries SET locked_at = now() - interval '10 minutes' WHERE id = $1`, ids[0])
	require.NoError(t, err)

	again, err := repo.ClaimBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestMarkFailedKeepsEntryClaimableAfterLeaseExpiry(t *testing.T) {
	pool := newTestPool(t)
	repo := NewOutboxRepository(pool)
	ctx := context.Background()
	ids := seedEntries(t, pool, 1)

	claimed, err := repo.ClaimBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, repo.MarkFailed(ctx, ids[0], "broker down"))

	_, err = pool.Exec(ctx, `UPDATE outbox_entries SET locked_at = now() - interval '10 minutes' WHERE id = $1`, ids[0])
	require.NoError(t, err)

	again, err := repo.ClaimBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, ids[0], again[0].ID)
	assert.Equal(t, "broker down", again[0].LastError)
	assert.Equal(t, 2, again[0].Attempts)
}
