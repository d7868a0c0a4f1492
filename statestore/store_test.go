package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/gauntlet/engine"
)

func sampleResult(id, runID string, status engine.ResultStatus) *engine.RunResult {
	return &engine.RunResult{
		ID:       id,
		RunID:    runID,
		TestID:   "test-1",
		TestName: "happy path",
		Status:   status,
	}
}

func TestMemoryStore_SaveGetList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveResult(ctx, sampleResult("r1", "run-a", engine.ResultRunning)))
	require.NoError(t, store.SaveResult(ctx, sampleResult("r2", "run-a", engine.ResultRunning)))

	got, err := store.GetResult(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, engine.ResultRunning, got.Status)

	// Updating a result overwrites in place without duplicating the listing.
	require.NoError(t, store.SaveResult(ctx, sampleResult("r1", "run-a", engine.ResultPass)))

	results, err := store.ListResults(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "r1", results[0].ID)
	assert.Equal(t, engine.ResultPass, results[0].Status)
	assert.Equal(t, "r2", results[1].ID)
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetResult(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SnapshotsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	r := sampleResult("r1", "run-a", engine.ResultRunning)
	require.NoError(t, store.SaveResult(ctx, r))

	// Mutating the caller's copy after saving must not leak into the store.
	r.Status = engine.ResultError

	got, err := store.GetResult(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, engine.ResultRunning, got.Status)
}

func TestRedisStore_SaveGetList(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr(), WithPrefix("test"), WithTTL(time.Minute))
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	require.NoError(t, store.SaveResult(ctx, sampleResult("r1", "run-a", engine.ResultRunning)))
	require.NoError(t, store.SaveResult(ctx, sampleResult("r2", "run-a", engine.ResultRunning)))
	require.NoError(t, store.SaveResult(ctx, sampleResult("r1", "run-a", engine.ResultFail)))

	got, err := store.GetResult(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, engine.ResultFail, got.Status)
	assert.Equal(t, "happy path", got.TestName)

	results, err := store.ListResults(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, results, 2)

	ids := []string{results[0].ID, results[1].ID}
	assert.ElementsMatch(t, []string{"r1", "r2"}, ids)
}

func TestRedisStore_NotFound(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr())
	defer store.Close()

	_, err := store.GetResult(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_AppliesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr(), WithPrefix("ttl"), WithTTL(time.Minute))
	defer store.Close()

	require.NoError(t, store.SaveResult(context.Background(), sampleResult("r1", "run-a", engine.ResultRunning)))
	assert.Equal(t, time.Minute, mr.TTL("ttl:result:r1"))
	assert.Equal(t, time.Minute, mr.TTL("ttl:run:run-a"))

	// Expired results drop out of listings instead of failing them.
	mr.FastForward(2 * time.Minute)
	results, err := store.ListResults(context.Background(), "run-a")
	require.NoError(t, err)
	assert.Empty(t, results)
}
