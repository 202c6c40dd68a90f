// Package streak — repository.go выполняет операции с таблицей streaks.
// Запись идёт с проверкой версии: кто прочитал устаревшую строку — получает ErrConflict.
package streak

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/db/postgres"
)

// Store — хранилище стриков. Реализации: Repository (PostgreSQL) и MemoryRepository.
type Store interface {
	// Get возвращает стрик или common.ErrNotFound.
	Get(ctx context.Context, userID int64) (*State, error)
	// Insert создаёт запись; если она уже есть — common.ErrConflict.
	Insert(ctx context.Context, s *State) error
	// Update пишет s, только если версия в хранилище равна expectedVersion; иначе common.ErrConflict.
	Update(ctx context.Context, s *State, expectedVersion int64) error
	// ResetInactive обнуляет current_streak у тех, чья последняя активность раньше before.
	ResetInactive(ctx context.Context, before time.Time) (int, error)
}

// Repository — PostgreSQL-реализация Store.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий стриков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает стрик пользователя.
func (r *Repository) Get(ctx context.Context, userID int64) (*State, error) {
	query := `
		SELECT user_id, current_streak, longest_streak, last_activity_at,
		       last_streak_update_at, version, created_at, updated_at
		FROM streaks
		WHERE user_id = $1
	`
	var s State
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.LastActivityAt,
		&s.LastStreakUpdateAt, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("стрик user_id=%d: %w", userID, common.ErrNotFound)
		}
		return nil, common.Persistence("ошибка получения стрика", err)
	}
	return &s, nil
}

// Insert создаёт первую запись стрика. Параллельная вставка проигрывает с ErrConflict.
func (r *Repository) Insert(ctx context.Context, s *State) error {
	query := `
		INSERT INTO streaks (user_id, current_streak, longest_streak, last_activity_at,
		                     last_streak_update_at, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING version, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		s.UserID, s.CurrentStreak, s.LongestStreak, s.LastActivityAt, s.LastStreakUpdateAt,
	).Scan(&s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return fmt.Errorf("стрик user_id=%d уже создан: %w", s.UserID, common.ErrConflict)
		}
		return common.Persistence("ошибка создания стрика", err)
	}
	return nil
}

// Update обновляет стрик при совпадении версии.
func (r *Repository) Update(ctx context.Context, s *State, expectedVersion int64) error {
	query := `
		UPDATE streaks
		SET current_streak = $2, longest_streak = $3, last_activity_at = $4,
		    last_streak_update_at = $5, version = version + 1, updated_at = NOW()
		WHERE user_id = $1 AND version = $6
		RETURNING version, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		s.UserID, s.CurrentStreak, s.LongestStreak, s.LastActivityAt, s.LastStreakUpdateAt, expectedVersion,
	).Scan(&s.Version, &s.UpdatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return fmt.Errorf("стрик user_id=%d версия %d устарела: %w", s.UserID, expectedVersion, common.ErrConflict)
		}
		return common.Persistence("ошибка обновления стрика", err)
	}
	return nil
}

// ResetInactive обнуляет стрики неактивных пользователей.
// Повторный запуск ничего не меняет: условие current_streak > 0 уже не выполняется.
func (r *Repository) ResetInactive(ctx context.Context, before time.Time) (int, error) {
	query := `
		UPDATE streaks
		SET current_streak = 0, version = version + 1, updated_at = NOW()
		WHERE current_streak > 0 AND last_activity_at < $1
	`
	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, common.Persistence("ошибка сброса стриков", err)
	}
	return int(tag.RowsAffected()), nil
}
