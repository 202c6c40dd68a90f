// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежедневное обнуление стриков
// и еженедельный снимок рейтинга.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/config"
	"serotonyl.ru/qa-forum/internal/metrics"
)

// Имена задач (они же ключи отметок запусков)
const (
	JobStreakReset         = "streak_reset"
	JobLeaderboardSnapshot = "leaderboard_snapshot"
)

// Reconciler — то, что планировщик запускает по расписанию.
type Reconciler interface {
	ResetInactiveStreaks(ctx context.Context, now time.Time) (int, error)
	SnapshotLeaderboard(ctx context.Context, now time.Time) (int, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	cfg        *config.Config
}

// NewScheduler создаёт планировщик задач. Расписание считается в UTC:
// календарные дни журнала и стриков тоже в UTC.
func NewScheduler(reconciler Reconciler, cfg *config.Config) *Scheduler {
	c := cron.New(cron.WithLocation(time.UTC))

	return &Scheduler{
		cron:       c,
		reconciler: reconciler,
		cfg:        cfg,
	}
}

// Start регистрирует задачи и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	// Ежедневное обнуление стриков тех, кто пропустил вчерашний день
	if _, err := s.cron.AddFunc(s.cfg.ScheduleStreakReset, func() {
		log.Info("[CRON] Обнуление неактивных стриков")
		s.run(ctx, JobStreakReset, s.reconciler.ResetInactiveStreaks)
	}); err != nil {
		return fmt.Errorf("расписание %s: %w", JobStreakReset, err)
	}

	// Еженедельный снимок рейтинга
	if _, err := s.cron.AddFunc(s.cfg.ScheduleLeaderboard, func() {
		log.Info("[CRON] Снимок рейтинга")
		s.run(ctx, JobLeaderboardSnapshot, s.reconciler.SnapshotLeaderboard)
	}); err != nil {
		return fmt.Errorf("расписание %s: %w", JobLeaderboardSnapshot, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"streak_reset": s.cfg.ScheduleStreakReset,
		"leaderboard":  s.cfg.ScheduleLeaderboard,
	}).Info("Планировщик задач запущен (UTC)")
	return nil
}

func (s *Scheduler) run(ctx context.Context, job string, fn func(context.Context, time.Time) (int, error)) {
	n, err := fn(ctx, time.Now().UTC())
	if err != nil {
		metrics.JobRuns.WithLabelValues(job, "error").Inc()
		log.WithError(err).WithField("job", job).Error("[CRON] Ошибка задачи")
		return
	}
	metrics.JobRuns.WithLabelValues(job, "ok").Inc()
	log.WithFields(log.Fields{"job": job, "affected": n}).Info("[CRON] Задача выполнена")
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
