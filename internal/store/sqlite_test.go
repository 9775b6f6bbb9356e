package store

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(instance string, objective int, at time.Time) *Run {
	return &Run{
		Instance:  instance,
		Kind:      "jobshop",
		Status:    "OPTIMAL",
		Objective: objective,
		Elapsed:   1500 * time.Microsecond,
		Nodes:     17,
		Intervals: []Assignment{{Name: "j0_op0", Start: 0, End: 3, Length: 3}},
		CreatedAt: at,
	}
}

func TestCreateAndGetRun(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	r := sampleRun("ft03", 11, now)
	require.NoError(t, st.CreateRun(ctx, r))
	require.NotEmpty(t, r.ID)

	got, err := st.GetRun(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ft03", got.Instance)
	assert.Equal(t, 11, got.Objective)
	assert.Equal(t, 1500*time.Microsecond, got.Elapsed)
	assert.Equal(t, r.Intervals, got.Intervals)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.False(t, got.Limited)
}

func TestGetRunMissing(t *testing.T) {
	st := testStore(t)
	got, err := st.GetRun(context.Background(), "run_nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListRunsFiltersAndPages(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, st.CreateRun(ctx, sampleRun("ft03", 10+i, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, st.CreateRun(ctx, sampleRun("la01", 666, base)))

	runs, total, err := st.ListRuns(ctx, ListOptions{Instance: "ft03", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, runs, 2)
	assert.Equal(t, 12, runs[0].Objective, "newest first")

	_, total, err = st.ListRuns(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestBestRun(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	none, err := st.BestRun(ctx, "ft03")
	require.NoError(t, err)
	assert.Nil(t, none)

	infeasible := sampleRun("ft03", 0, base)
	infeasible.Status = "NO_SOLUTION"
	require.NoError(t, st.CreateRun(ctx, infeasible))
	require.NoError(t, st.CreateRun(ctx, sampleRun("ft03", 14, base.Add(time.Minute))))
	require.NoError(t, st.CreateRun(ctx, sampleRun("ft03", 11, base.Add(2*time.Minute))))

	best, err := st.BestRun(ctx, "ft03")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 11, best.Objective)
}

func TestDeleteRun(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	r := sampleRun("ft03", 9, time.Now().UTC())
	require.NoError(t, st.CreateRun(ctx, r))
	require.NoError(t, st.DeleteRun(ctx, r.ID))
	got, err := st.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, st.DeleteRun(ctx, r.ID))
}

func TestListOptionsClamp(t *testing.T) {
	o := ListOptions{Limit: 10000, Offset: -3}
	o.Clamp()
	assert.Equal(t, 500, o.Limit)
	assert.Equal(t, 0, o.Offset)
}
