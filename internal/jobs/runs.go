// Package jobs — runs.go хранит отметки запусков периодических задач.
// Отметка (job, period) ставится один раз: второй экземпляр сервиса
// или повторный тик в том же периоде её не получит.
package jobs

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/qa-forum/internal/common"
)

// RunStore — отметки запусков. Реализации: RunRepository (PostgreSQL) и MemoryRunStore.
type RunStore interface {
	// Claim ставит отметку (job, period). false — отметка уже стоит.
	Claim(ctx context.Context, job, period, holder string) (bool, error)
	// Release снимает отметку, чтобы период можно было повторить.
	Release(ctx context.Context, job, period string) error
}

// RunRepository — PostgreSQL-реализация RunStore над таблицей job_runs.
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository создаёт репозиторий отметок.
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

// Claim вставляет отметку; конфликт по (job, period) означает, что отметка уже стоит.
func (r *RunRepository) Claim(ctx context.Context, job, period, holder string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO job_runs (job, period, holder)
		VALUES ($1, $2, $3)
		ON CONFLICT (job, period) DO NOTHING
	`, job, period, holder)
	if err != nil {
		return false, common.Persistence("ошибка отметки запуска", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release снимает отметку, чтобы следующий запуск повторил задачу.
func (r *RunRepository) Release(ctx context.Context, job, period string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM job_runs WHERE job = $1 AND period = $2`, job, period); err != nil {
		return common.Persistence("ошибка снятия отметки запуска", err)
	}
	return nil
}

// MemoryRunStore — RunStore в памяти процесса.
type MemoryRunStore struct {
	mu   sync.Mutex
	runs map[[2]string]string
}

// NewMemoryRunStore создаёт пустое хранилище отметок.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[[2]string]string)}
}

// Claim ставит отметку, если её ещё нет.
func (m *MemoryRunStore) Claim(_ context.Context, job, period, holder string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{job, period}
	if _, ok := m.runs[key]; ok {
		return false, nil
	}
	m.runs[key] = holder
	return true, nil
}

// Release снимает отметку.
func (m *MemoryRunStore) Release(_ context.Context, job, period string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, [2]string{job, period})
	return nil
}
