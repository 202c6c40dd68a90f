// Package votes — service.go содержит логику голосования.
package votes

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
)

// Service управляет голосами.
type Service struct {
	store Store
}

// NewService создаёт сервис голосов.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Toggle переключает голос userID за contentID.
func (s *Service) Toggle(ctx context.Context, contentID string, userID int64) (*Result, error) {
	if contentID == "" || userID <= 0 {
		return nil, common.Validation("нужны contentID и userID")
	}

	res, err := s.store.Toggle(ctx, contentID, userID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"content_id": contentID,
		"user_id":    userID,
		"direction":  res.Direction,
		"count":      res.Count,
	}).Debug("Голос переключён")
	return res, nil
}

// Count возвращает число голосов за контент.
func (s *Service) Count(ctx context.Context, contentID string) (int, error) {
	return s.store.Count(ctx, contentID)
}

// Purge удаляет голоса удалённого контента.
func (s *Service) Purge(ctx context.Context, contentID string) error {
	return s.store.Purge(ctx, contentID)
}
