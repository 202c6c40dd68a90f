package streak

import (
	"context"
	"fmt"
	"sync"
	"time"

	"serotonyl.ru/qa-forum/internal/common"
)

// MemoryRepository — Store в памяти процесса.
type MemoryRepository struct {
	mu      sync.Mutex
	streaks map[int64]State
}

// NewMemoryRepository создаёт пустое хранилище стриков.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{streaks: make(map[int64]State)}
}

// Get возвращает копию стрика или nil, если его нет.
func (m *MemoryRepository) Get(_ context.Context, userID int64) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streaks[userID]
	if !ok {
		return nil, fmt.Errorf("стрик user_id=%d: %w", userID, common.ErrNotFound)
	}
	return &s, nil
}

// Insert создаёт стрик; если он уже есть — common.ErrConflict.
func (m *MemoryRepository) Insert(_ context.Context, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.streaks[s.UserID]; ok {
		return fmt.Errorf("стрик user_id=%d уже создан: %w", s.UserID, common.ErrConflict)
	}
	now := time.Now()
	s.Version = 1
	s.CreatedAt, s.UpdatedAt = now, now
	m.streaks[s.UserID] = *s
	return nil
}

// Update сохраняет стрик при совпадении версии.
func (m *MemoryRepository) Update(_ context.Context, s *State, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.streaks[s.UserID]
	if !ok || cur.Version != expectedVersion {
		return fmt.Errorf("стрик user_id=%d версия %d устарела: %w", s.UserID, expectedVersion, common.ErrConflict)
	}
	s.Version = expectedVersion + 1
	s.CreatedAt = cur.CreatedAt
	s.UpdatedAt = time.Now()
	m.streaks[s.UserID] = *s
	return nil
}

// ResetInactive обнуляет серии без активности с момента before.
func (m *MemoryRepository) ResetInactive(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset := 0
	for id, s := range m.streaks {
		if s.CurrentStreak > 0 && s.LastActivityAt != nil && s.LastActivityAt.Before(before) {
			s.CurrentStreak = 0
			s.Version++
			s.UpdatedAt = time.Now()
			m.streaks[id] = s
			reset++
		}
	}
	return reset, nil
}
