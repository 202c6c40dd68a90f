// Package admin — repository.go работает с таблицей admin_key_attempts.
package admin

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/qa-forum/internal/common"
)

// AttemptStore хранит попытки предъявления ключа.
type AttemptStore interface {
	LogAttempt(ctx context.Context, source string, success bool) error
	// RecentFailures — число неудачных попыток источника начиная с since.
	RecentFailures(ctx context.Context, source string, since time.Time) (int, error)
}

// Repository — PostgreSQL-реализация AttemptStore.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LogAttempt записывает попытку.
func (r *Repository) LogAttempt(ctx context.Context, source string, success bool) error {
	query := `INSERT INTO admin_key_attempts (source, success) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, source, success); err != nil {
		return common.Persistence("ошибка записи попытки входа", err)
	}
	return nil
}

// RecentFailures возвращает количество неудачных попыток за период.
func (r *Repository) RecentFailures(ctx context.Context, source string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM admin_key_attempts
		WHERE source = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	if err := r.db.QueryRow(ctx, query, source, since).Scan(&count); err != nil {
		return 0, common.Persistence("ошибка чтения попыток входа", err)
	}
	return count, nil
}

// MemoryAttempts — AttemptStore в памяти процесса.
type MemoryAttempts struct {
	mu       sync.Mutex
	attempts []KeyAttempt
	now      func() time.Time
}

// NewMemoryAttempts создаёт пустое хранилище попыток.
func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{now: time.Now}
}

// LogAttempt запоминает попытку входа.
func (m *MemoryAttempts) LogAttempt(_ context.Context, source string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, KeyAttempt{
		ID:          int64(len(m.attempts) + 1),
		Source:      source,
		AttemptTime: m.now(),
		Success:     success,
	})
	return nil
}

// RecentFailures считает неудачные попытки source начиная с since.
func (m *MemoryAttempts) RecentFailures(_ context.Context, source string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.attempts {
		if a.Source == source && !a.Success && !a.AttemptTime.Before(since) {
			count++
		}
	}
	return count, nil
}
