package economy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"serotonyl.ru/qa-forum/internal/common"
)

type loginKey struct {
	userID int64
	day    time.Time
}

// MemoryRepository — Store в памяти процесса для STORAGE_DRIVER=memory и тестов.
// Уникальность ежедневного входа и ключей идемпотентности проверяется под одной блокировкой.
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	entries  []*LedgerEntry
	logins   map[loginKey]struct{}
	keys     map[string]struct{}
	balances map[int64]*Balance
	now      func() time.Time
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		logins:   make(map[loginKey]struct{}),
		keys:     make(map[string]struct{}),
		balances: make(map[int64]*Balance),
		now:      time.Now,
	}
}

// AppendEntry добавляет запись и применяет signed к балансу с полом в нуле.
func (m *MemoryRepository) AppendEntry(_ context.Context, entry *LedgerEntry, signed int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	login := loginKey{userID: entry.UserID, day: entry.OccurredOn}
	if entry.Action == ActionDailyLogin {
		if _, ok := m.logins[login]; ok {
			return 0, fmt.Errorf("запись %s для user_id=%d: %w", entry.Action, entry.UserID, common.ErrDuplicate)
		}
	}
	if entry.IdempotencyKey != nil {
		if _, ok := m.keys[*entry.IdempotencyKey]; ok {
			return 0, fmt.Errorf("ключ %s: %w", *entry.IdempotencyKey, common.ErrDuplicate)
		}
	}

	m.nextID++
	entry.ID = m.nextID
	entry.CreatedAt = m.now()
	stored := *entry
	m.entries = append(m.entries, &stored)
	if entry.Action == ActionDailyLogin {
		m.logins[login] = struct{}{}
	}
	if entry.IdempotencyKey != nil {
		m.keys[*entry.IdempotencyKey] = struct{}{}
	}
	return m.adjustLocked(entry.UserID, signed), nil
}

// AdjustBalance меняет баланс без записи в журнал.
func (m *MemoryRepository) AdjustBalance(_ context.Context, userID int64, signed int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustLocked(userID, signed), nil
}

func (m *MemoryRepository) adjustLocked(userID int64, signed int64) int64 {
	now := m.now()
	b, ok := m.balances[userID]
	if !ok {
		b = &Balance{UserID: userID, CreatedAt: now}
		m.balances[userID] = b
	}
	b.Balance = max(0, b.Balance+signed)
	if signed > 0 {
		b.TotalEarned += signed
	} else {
		b.TotalSpent -= signed
	}
	b.UpdatedAt = now
	return b.Balance
}

// GetBalance возвращает баланс (0 для нового пользователя).
func (m *MemoryRepository) GetBalance(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[userID]; ok {
		return b.Balance, nil
	}
	return 0, nil
}

// GetStats возвращает баланс вместе с суммами заработанного и потраченного.
func (m *MemoryRepository) GetStats(_ context.Context, userID int64) (*Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[userID]
	if !ok {
		return nil, fmt.Errorf("баланс user_id=%d: %w", userID, common.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

// ListEntries возвращает последние записи пользователя, новые первыми.
func (m *MemoryRepository) ListEntries(_ context.Context, userID int64, limit int) ([]*LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*LedgerEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if e := m.entries[i]; e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// TopBalances возвращает limit лучших балансов.
func (m *MemoryRepository) TopBalances(_ context.Context, limit int) ([]*Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Balance, 0, len(m.balances))
	for _, b := range m.balances {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
