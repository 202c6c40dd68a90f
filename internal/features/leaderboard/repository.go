// Package leaderboard — repository.go работает с таблицей leaderboard_snapshots.
package leaderboard

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/db/postgres"
)

// Store — хранилище снимков. Реализации: Repository (PostgreSQL) и MemoryRepository.
type Store interface {
	// InsertSnapshot добавляет строки; уже записанные (period, user_id) пропускаются.
	// Возвращает число реально добавленных строк.
	InsertSnapshot(ctx context.Context, entries []Entry) (int, error)
	GetSnapshot(ctx context.Context, period string) ([]*Entry, error)
}

// Repository — PostgreSQL-реализация Store.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий снимков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertSnapshot вставляет строки снимка пачкой, пропуская уже записанные.
func (r *Repository) InsertSnapshot(ctx context.Context, entries []Entry) (int, error) {
	inserted := 0
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(`
				INSERT INTO leaderboard_snapshots (period, rank, user_id, balance, taken_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (period, user_id) DO NOTHING
			`, e.Period, e.Rank, e.UserID, e.Balance, e.TakenAt)
		}

		results := tx.SendBatch(ctx, batch)
		for range entries {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return common.Persistence("ошибка записи снимка рейтинга", err)
			}
			inserted += int(tag.RowsAffected())
		}
		if err := results.Close(); err != nil {
			return common.Persistence("ошибка записи снимка рейтинга", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetSnapshot читает снимок периода.
func (r *Repository) GetSnapshot(ctx context.Context, period string) ([]*Entry, error) {
	query := `
		SELECT period, rank, user_id, balance, taken_at
		FROM leaderboard_snapshots
		WHERE period = $1
		ORDER BY rank
	`
	rows, err := r.db.Query(ctx, query, period)
	if err != nil {
		return nil, common.Persistence("ошибка получения снимка рейтинга", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Period, &e.Rank, &e.UserID, &e.Balance, &e.TakenAt); err != nil {
			return nil, common.Persistence("ошибка сканирования снимка", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Persistence("ошибка чтения снимка", err)
	}
	return entries, nil
}
