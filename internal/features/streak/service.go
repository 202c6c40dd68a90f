// Package streak — service.go содержит трекер стриков.
// Трекер зажимает смещение часового пояса, прогоняет автомат переходов
// и пишет результат с оптимистичной блокировкой по версии.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/config"
	"serotonyl.ru/qa-forum/internal/metrics"
)

// Tracker ведёт стрики пользователей.
type Tracker struct {
	store      Store
	minOffset  int
	maxOffset  int
	maxRetries int
}

// NewTracker создаёт трекер стриков.
func NewTracker(store Store, cfg *config.Config) *Tracker {
	return &Tracker{
		store:      store,
		minOffset:  cfg.StreakMinOffsetMinutes,
		maxOffset:  cfg.StreakMaxOffsetMinutes,
		maxRetries: cfg.StreakMaxRetries,
	}
}

// RecordActivity засчитывает активность пользователя в момент now.
//
// Алгоритм:
//  1. Зажимаем смещение в допустимый диапазон
//  2. Читаем текущий стрик (его может не быть)
//  3. Считаем переход; если день уже засчитан — возвращаем Updated=false
//  4. Пишем с проверкой версии; при конфликте перечитываем и повторяем
//
// Сбой хранилища возвращается как common.ErrPersistence.
func (t *Tracker) RecordActivity(ctx context.Context, userID int64, offsetMinutes int, now time.Time) (*Result, error) {
	offset := common.ClampOffset(offsetMinutes, t.minOffset, t.maxOffset)

	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		prev, err := t.store.Get(ctx, userID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}

		next, transition := Advance(prev, userID, offset, now)
		metrics.StreakTransitions.WithLabelValues(string(transition)).Inc()
		if !transition.Changes() {
			return &Result{Updated: false, State: next}, nil
		}

		if prev == nil {
			err = t.store.Insert(ctx, &next)
		} else {
			err = t.store.Update(ctx, &next, prev.Version)
		}
		if errors.Is(err, common.ErrConflict) {
			metrics.StreakConflicts.Inc()
			log.WithFields(log.Fields{
				"user_id": userID,
				"attempt": attempt,
			}).Debug("Конфликт версии стрика, повторяем")
			continue
		}
		if err != nil {
			return nil, err
		}

		log.WithFields(log.Fields{
			"user_id":    userID,
			"transition": transition,
			"current":    next.CurrentStreak,
			"longest":    next.LongestStreak,
		}).Debug("Стрик обновлён")
		return &Result{Updated: true, State: next}, nil
	}

	return nil, fmt.Errorf("стрик user_id=%d не записан за %d попыток: %w: %w",
		userID, t.maxRetries, common.ErrPersistence, common.ErrConflict)
}

// Get возвращает стрик пользователя; если его нет — нулевое состояние.
func (t *Tracker) Get(ctx context.Context, userID int64) (*State, error) {
	s, err := t.store.Get(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return &State{UserID: userID}, nil
	}
	return s, err
}

// ResetInactive обнуляет стрики, чья последняя активность раньше before.
func (t *Tracker) ResetInactive(ctx context.Context, before time.Time) (int, error) {
	return t.store.ResetInactive(ctx, before)
}
