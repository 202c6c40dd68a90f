package votes

import (
	"context"
	"sync"
)

type voteKey struct {
	contentID string
	userID    int64
}

// MemoryRepository — Store в памяти процесса.
type MemoryRepository struct {
	mu      sync.Mutex
	members map[voteKey]struct{}
	tallies map[string]int
}

// NewMemoryRepository создаёт пустое хранилище голосов.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		members: make(map[voteKey]struct{}),
		tallies: make(map[string]int),
	}
}

// Toggle переключает голос.
func (m *MemoryRepository) Toggle(_ context.Context, contentID string, userID int64) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := voteKey{contentID: contentID, userID: userID}
	res := &Result{Direction: DirectionUp}
	if _, ok := m.members[key]; ok {
		delete(m.members, key)
		res.Direction = DirectionDown
		m.tallies[contentID] = max(0, m.tallies[contentID]-1)
	} else {
		m.members[key] = struct{}{}
		m.tallies[contentID]++
	}
	res.Count = m.tallies[contentID]
	return res, nil
}

// Count возвращает число голосов за контент.
func (m *MemoryRepository) Count(_ context.Context, contentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tallies[contentID], nil
}

// Purge удаляет голоса контента.
func (m *MemoryRepository) Purge(_ context.Context, contentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.members {
		if key.contentID == contentID {
			delete(m.members, key)
		}
	}
	delete(m.tallies, contentID)
	return nil
}
