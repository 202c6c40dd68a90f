package leaderboard

import (
	"context"
	"sort"
	"sync"
)

type snapshotKey struct {
	period string
	userID int64
}

// MemoryRepository — Store в памяти процесса.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[snapshotKey]Entry
}

// NewMemoryRepository создаёт пустое хранилище снимков.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[snapshotKey]Entry)}
}

// InsertSnapshot сохраняет строки снимка; уже записанные (period, user_id) пропускаются.
func (m *MemoryRepository) InsertSnapshot(_ context.Context, entries []Entry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, e := range entries {
		key := snapshotKey{period: e.Period, userID: e.UserID}
		if _, ok := m.rows[key]; ok {
			continue
		}
		m.rows[key] = e
		inserted++
	}
	return inserted, nil
}

// GetSnapshot возвращает снимок периода по возрастанию места.
func (m *MemoryRepository) GetSnapshot(_ context.Context, period string) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []*Entry
	for key, e := range m.rows {
		if key.period == period {
			entries = append(entries, &e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
	return entries, nil
}
