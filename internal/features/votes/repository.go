// Package votes — repository.go выполняет операции с таблицами votes и vote_tallies.
// Проверка членства и изменение счётчика идут одной транзакцией.
package votes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/db/postgres"
)

// Store — хранилище голосов. Реализации: Repository (PostgreSQL) и MemoryRepository.
type Store interface {
	// Toggle снимает голос, если он был, иначе ставит. Счётчик не уходит ниже нуля.
	Toggle(ctx context.Context, contentID string, userID int64) (*Result, error)
	Count(ctx context.Context, contentID string) (int, error)
	// Purge удаляет все голоса и счётчик контента.
	Purge(ctx context.Context, contentID string) error
}

// Repository — PostgreSQL-реализация Store.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий голосов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Toggle переключает голос.
//
// Алгоритм (в одной транзакции):
//  1. DELETE строки членства; если удалили — это снятие голоса (-1)
//  2. Иначе INSERT; если параллельный запрос вставил раньше — ErrConflict
//  3. Upsert счётчика с полом в нуле
func (r *Repository) Toggle(ctx context.Context, contentID string, userID int64) (*Result, error) {
	var res Result
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM votes WHERE content_id = $1 AND user_id = $2`, contentID, userID)
		if err != nil {
			return common.Persistence("ошибка снятия голоса", err)
		}

		delta := -1
		res.Direction = DirectionDown
		if tag.RowsAffected() == 0 {
			tag, err = tx.Exec(ctx, `
				INSERT INTO votes (content_id, user_id) VALUES ($1, $2)
				ON CONFLICT (content_id, user_id) DO NOTHING
			`, contentID, userID)
			if err != nil {
				return common.Persistence("ошибка записи голоса", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("голос user_id=%d за %s: %w", userID, contentID, common.ErrConflict)
			}
			delta = 1
			res.Direction = DirectionUp
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO vote_tallies (content_id, vote_count)
			VALUES ($1, GREATEST(0, $2::int))
			ON CONFLICT (content_id) DO UPDATE
			SET vote_count = GREATEST(0, vote_tallies.vote_count + $2::int),
			    updated_at = NOW()
			RETURNING vote_count
		`, contentID, delta).Scan(&res.Count)
		if err != nil {
			return common.Persistence("ошибка обновления счётчика голосов", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Count возвращает число голосов (0, если голосов не было).
func (r *Repository) Count(ctx context.Context, contentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT vote_count FROM vote_tallies WHERE content_id = $1`, contentID).Scan(&count)
	if err != nil {
		if postgres.IsNoRows(err) {
			return 0, nil
		}
		return 0, common.Persistence("ошибка получения счётчика голосов", err)
	}
	return count, nil
}

// Purge удаляет голоса и счётчик контента одной транзакцией.
func (r *Repository) Purge(ctx context.Context, contentID string) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM votes WHERE content_id = $1`, contentID); err != nil {
			return common.Persistence("ошибка удаления голосов", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM vote_tallies WHERE content_id = $1`, contentID); err != nil {
			return common.Persistence("ошибка удаления счётчика голосов", err)
		}
		return nil
	})
}
