// Package gamification — reconciler.go содержит периодическую сверку:
// обнуление стриков неактивных пользователей и недельный снимок рейтинга.
package gamification

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/config"
	"serotonyl.ru/qa-forum/internal/features/leaderboard"
	"serotonyl.ru/qa-forum/internal/jobs"
	"serotonyl.ru/qa-forum/internal/metrics"
	"serotonyl.ru/qa-forum/internal/notify"
)

// Reconciler выполняет периодические задачи. Безопасен для нескольких экземпляров:
// обнуление идемпотентно, снимок защищён отметкой (job, period).
type Reconciler struct {
	streaks   StreakTracker
	balances  BalanceReader
	snapshots SnapshotRecorder
	runs      jobs.RunStore
	notifier  notify.Notifier

	size      int
	notifyTop int
	holder    string
}

// NewReconciler создаёт сверку.
func NewReconciler(streaks StreakTracker, balances BalanceReader, snapshots SnapshotRecorder,
	runs jobs.RunStore, notifier notify.Notifier, cfg *config.Config) *Reconciler {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Reconciler{
		streaks:   streaks,
		balances:  balances,
		snapshots: snapshots,
		runs:      runs,
		notifier:  notifier,
		size:      cfg.LeaderboardSize,
		notifyTop: cfg.LeaderboardNotifyTopSize,
		holder:    cfg.InstanceID,
	}
}

// ResetInactiveStreaks обнуляет стрики тех, чья последняя активность (по UTC)
// была раньше вчерашнего дня. Повторный запуск ничего не меняет.
func (r *Reconciler) ResetInactiveStreaks(ctx context.Context, now time.Time) (int, error) {
	cutoff := common.DayStart(now).Add(-24 * time.Hour)

	n, err := r.streaks.ResetInactive(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	metrics.StreaksReset.Add(float64(n))
	log.WithFields(log.Fields{
		"cutoff": cutoff.Format(time.DateOnly),
		"reset":  n,
	}).Info("Неактивные стрики обнулены")
	return n, nil
}

// SnapshotLeaderboard записывает топ балансов за ISO-неделю now.
// Неделя снимается один раз: кто первым поставил отметку, тот и пишет.
// Если запись не удалась, отметка снимается, чтобы следующий тик повторил попытку.
func (r *Reconciler) SnapshotLeaderboard(ctx context.Context, now time.Time) (int, error) {
	period := common.ISOWeekKey(now)

	claimed, err := r.runs.Claim(ctx, jobs.JobLeaderboardSnapshot, period, r.holder)
	if err != nil {
		return 0, err
	}
	if !claimed {
		log.WithField("period", period).Info("Снимок рейтинга за период уже сделан")
		return 0, nil
	}

	inserted, err := r.snapshot(ctx, period, now)
	if err != nil {
		if rerr := r.runs.Release(context.WithoutCancel(ctx), jobs.JobLeaderboardSnapshot, period); rerr != nil {
			log.WithError(rerr).WithField("period", period).Error("Не удалось снять отметку снимка")
		}
		return 0, err
	}
	return inserted, nil
}

func (r *Reconciler) snapshot(ctx context.Context, period string, now time.Time) (int, error) {
	top, err := r.balances.Top(ctx, r.size)
	if err != nil {
		return 0, err
	}

	standings := make([]leaderboard.Standing, 0, len(top))
	for _, b := range top {
		standings = append(standings, leaderboard.Standing{UserID: b.UserID, Balance: b.Balance})
	}

	inserted, err := r.snapshots.Record(ctx, period, now, standings)
	if err != nil {
		return 0, err
	}
	metrics.LeaderboardRows.Add(float64(inserted))

	if len(standings) > 0 && r.notifyTop > 0 {
		if err := r.notifier.Notify(ctx, weeklySummary(period, standings, r.notifyTop)); err != nil {
			log.WithError(err).Warn("Не удалось отправить итоги недели")
		}
	}
	return inserted, nil
}

// weeklySummary — текст итогов недели для дежурного чата.
func weeklySummary(period string, standings []leaderboard.Standing, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Итоги недели %s\n", period)
	for i, st := range standings {
		if i >= n {
			break
		}
		fmt.Fprintf(&b, "%d. user %d — %s %s\n", i+1, st.UserID,
			common.FormatNumber(st.Balance), common.PluralizePoints(st.Balance))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RunReconciliationPass выполняет обе задачи и возвращает суммарное число
// затронутых записей: обнулённые стрики плюс строки снимка.
func (r *Reconciler) RunReconciliationPass(ctx context.Context, now time.Time) (int, error) {
	reset, err := r.ResetInactiveStreaks(ctx, now)
	if err != nil {
		metrics.JobRuns.WithLabelValues(jobs.JobStreakReset, "error").Inc()
		return 0, err
	}
	metrics.JobRuns.WithLabelValues(jobs.JobStreakReset, "ok").Inc()

	rows, err := r.SnapshotLeaderboard(ctx, now)
	if err != nil {
		metrics.JobRuns.WithLabelValues(jobs.JobLeaderboardSnapshot, "error").Inc()
		return reset, err
	}
	metrics.JobRuns.WithLabelValues(jobs.JobLeaderboardSnapshot, "ok").Inc()

	return reset + rows, nil
}
