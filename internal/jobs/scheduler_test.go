package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/qa-forum/internal/config"
)

type fakeReconciler struct {
	resets    int
	snapshots int
	err       error
}

func (f *fakeReconciler) ResetInactiveStreaks(context.Context, time.Time) (int, error) {
	f.resets++
	return 2, f.err
}

func (f *fakeReconciler) SnapshotLeaderboard(context.Context, time.Time) (int, error) {
	f.snapshots++
	return 10, f.err
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&fakeReconciler{}, &config.Config{
		ScheduleStreakReset: "not a cron",
		ScheduleLeaderboard: "0 0 * * 1",
	})

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, JobStreakReset)
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(&fakeReconciler{}, &config.Config{
		ScheduleStreakReset: "5 0 * * *",
		ScheduleLeaderboard: "0 0 * * 1",
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}

func TestRunSwallowsErrors(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("db down")}
	s := NewScheduler(rec, &config.Config{})

	s.run(context.Background(), JobStreakReset, rec.ResetInactiveStreaks)
	s.run(context.Background(), JobLeaderboardSnapshot, rec.SnapshotLeaderboard)

	assert.Equal(t, 1, rec.resets)
	assert.Equal(t, 1, rec.snapshots)
}

func TestMemoryRunStoreClaimsOnce(t *testing.T) {
	ctx := context.Background()
	runs := NewMemoryRunStore()

	ok, err := runs.Claim(ctx, JobLeaderboardSnapshot, "2026-W43", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = runs.Claim(ctx, JobLeaderboardSnapshot, "2026-W43", "b")
	assert.False(t, ok)

	ok, _ = runs.Claim(ctx, JobLeaderboardSnapshot, "2026-W44", "b")
	assert.True(t, ok)

	require.NoError(t, runs.Release(ctx, JobLeaderboardSnapshot, "2026-W43"))
	ok, _ = runs.Claim(ctx, JobLeaderboardSnapshot, "2026-W43", "b")
	assert.True(t, ok)
}
