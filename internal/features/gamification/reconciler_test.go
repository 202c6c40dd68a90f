package gamification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/features/economy"
	"serotonyl.ru/qa-forum/internal/features/leaderboard"
	"serotonyl.ru/qa-forum/internal/jobs"
)

// brokenBalances не отдаёт топ.
type brokenBalances struct {
	BalanceReader
}

func (brokenBalances) Top(context.Context, int) ([]*economy.Balance, error) { return nil, errStore }

func (f *fixture) credit(t *testing.T, userID, points int64) {
	t.Helper()
	_, err := f.history.Append(context.Background(), economy.AppendRequest{
		UserID:            userID,
		Points:            points,
		Action:            economy.ActionAdminAdjust,
		RelatedEntityID:   "seed",
		RelatedEntityKind: economy.KindAdjustment,
		OccurredOn:        f.now,
	})
	require.NoError(t, err)
}

func TestResetInactiveStreaks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 1 заходил позавчера, 2 вчера, 3 сегодня
	for userID, day := range map[int64]time.Time{
		1: f.now.Add(-48 * time.Hour),
		2: f.now.Add(-24 * time.Hour),
		3: f.now,
	} {
		_, err := f.tracker.RecordActivity(ctx, userID, 0, day)
		require.NoError(t, err)
	}

	n, err := f.reconciler.ResetInactiveStreaks(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err := f.tracker.Get(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, st.CurrentStreak)
	assert.Equal(t, 1, st.LongestStreak)

	st, err = f.tracker.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)

	// Повторный запуск ничего не меняет
	n, err = f.reconciler.ResetInactiveStreaks(ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSnapshotLeaderboardOncePerWeek(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.credit(t, 1, 50)
	f.credit(t, 2, 120)
	f.credit(t, 3, 7)

	rows, err := f.reconciler.SnapshotLeaderboard(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	entries, err := f.snapshots.Snapshot(ctx, common.ISOWeekKey(f.now))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(2), entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, int64(120), entries[0].Balance)

	// Та же неделя: отметка уже стоит
	rows, err = f.reconciler.SnapshotLeaderboard(ctx, f.now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, rows)

	nextWeek := f.now.Add(7 * 24 * time.Hour)
	rows, err = f.reconciler.SnapshotLeaderboard(ctx, nextWeek)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	assert.NotEqual(t, common.ISOWeekKey(f.now), common.ISOWeekKey(nextWeek))
}

func TestSnapshotFailureReleasesWatermark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.credit(t, 1, 10)

	broken := NewReconciler(f.tracker, brokenBalances{f.balances}, f.snapshots, f.runs, f.notifier, f.cfg)
	_, err := broken.SnapshotLeaderboard(ctx, f.now)
	require.ErrorIs(t, err, common.ErrPersistence)

	rows, err := f.reconciler.SnapshotLeaderboard(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestSnapshotRespectsForeignWatermark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.credit(t, 1, 10)

	ok, err := f.runs.Claim(ctx, jobs.JobLeaderboardSnapshot, common.ISOWeekKey(f.now), "other-instance")
	require.NoError(t, err)
	require.True(t, ok)

	rows, err := f.reconciler.SnapshotLeaderboard(ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Empty(t, f.notifier.messages())
}

func TestSnapshotNotifiesTop(t *testing.T) {
	f := newFixture(t)
	for i := int64(1); i <= 5; i++ {
		f.credit(t, i, i*1000)
	}

	_, err := f.reconciler.SnapshotLeaderboard(context.Background(), f.now)
	require.NoError(t, err)

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	lines := strings.Split(msgs[0], "\n")
	require.Len(t, lines, 1+f.cfg.LeaderboardNotifyTopSize)
	assert.Equal(t, "🏆 Итоги недели 2026-W43", lines[0])
	assert.Equal(t, "1. user 5 — 5 000 баллов", lines[1])
}

func TestEmptySnapshotIsSilent(t *testing.T) {
	f := newFixture(t)

	rows, err := f.reconciler.SnapshotLeaderboard(context.Background(), f.now)
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Empty(t, f.notifier.messages())
}

func TestRunReconciliationPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.tracker.RecordActivity(ctx, 1, 0, f.now.Add(-72*time.Hour))
	require.NoError(t, err)
	f.credit(t, 1, 4)
	f.credit(t, 2, 9)

	n, err := f.reconciler.RunReconciliationPass(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1+2, n)

	n, err = f.reconciler.RunReconciliationPass(ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWeeklySummary(t *testing.T) {
	text := weeklySummary("2026-W43", []leaderboard.Standing{
		{UserID: 7, Balance: 21},
		{UserID: 8, Balance: 2},
	}, 5)
	assert.Equal(t, "🏆 Итоги недели 2026-W43\n1. user 7 — 21 балл\n2. user 8 — 2 балла", text)
}
