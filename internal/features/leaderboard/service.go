// Package leaderboard — service.go фиксирует снимки и отдаёт их на чтение.
package leaderboard

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
)

// Service управляет снимками рейтинга.
type Service struct {
	store Store
}

// NewService создаёт сервис снимков.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record записывает снимок периода. Места присваиваются по порядку standings, начиная с 1.
// Повторная запись того же периода ничего не добавляет.
func (s *Service) Record(ctx context.Context, period string, takenAt time.Time, standings []Standing) (int, error) {
	if period == "" {
		return 0, common.Validation("не задан период снимка")
	}
	if len(standings) == 0 {
		return 0, nil
	}

	entries := make([]Entry, 0, len(standings))
	for i, st := range standings {
		entries = append(entries, Entry{
			Period:  period,
			Rank:    i + 1,
			UserID:  st.UserID,
			Balance: st.Balance,
			TakenAt: takenAt.UTC(),
		})
	}

	inserted, err := s.store.InsertSnapshot(ctx, entries)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"period":   period,
		"rows":     len(entries),
		"inserted": inserted,
	}).Info("Снимок рейтинга записан")
	return inserted, nil
}

// Snapshot возвращает снимок периода в порядке мест.
// Для периода без снимка — common.ErrNotFound.
func (s *Service) Snapshot(ctx context.Context, period string) ([]*Entry, error) {
	entries, err := s.store.GetSnapshot(ctx, period)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, common.ErrNotFound
	}
	return entries, nil
}
