// Package economy — repository.go выполняет все операции с таблицами ledger_entries и balances.
// Запись в журнал и изменение баланса выполняются в одной транзакции БД.
package economy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/db/postgres"
)

// Store — хранилище журнала и балансов.
// Реализации: Repository (PostgreSQL) и MemoryRepository.
type Store interface {
	// AppendEntry записывает entry и меняет баланс на signed атомарно.
	// Возвращает новый баланс или common.ErrDuplicate.
	AppendEntry(ctx context.Context, entry *LedgerEntry, signed int64) (int64, error)
	AdjustBalance(ctx context.Context, userID int64, signed int64) (int64, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	GetStats(ctx context.Context, userID int64) (*Balance, error)
	ListEntries(ctx context.Context, userID int64, limit int) ([]*LedgerEntry, error)
	TopBalances(ctx context.Context, limit int) ([]*Balance, error)
}

// Repository — PostgreSQL-реализация Store.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий экономики.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// upsertBalance меняет баланс с полом в нуле. Первая запись создаёт строку.
const upsertBalance = `
	INSERT INTO balances (user_id, balance, total_earned, total_spent)
	VALUES ($1, GREATEST(0, $2::bigint), GREATEST(0, $2::bigint), GREATEST(0, -$2::bigint))
	ON CONFLICT (user_id) DO UPDATE
	SET balance = GREATEST(0, balances.balance + $2::bigint),
	    total_earned = balances.total_earned + GREATEST(0, $2::bigint),
	    total_spent = balances.total_spent + GREATEST(0, -$2::bigint),
	    updated_at = NOW()
	RETURNING balance
`

// AppendEntry добавляет запись журнала и обновляет баланс.
// Обе записи в одной транзакции: либо произойдут обе, либо ни одной.
// Нарушение уникального индекса (повторный вход за день, повтор ключа) — common.ErrDuplicate.
func (r *Repository) AppendEntry(ctx context.Context, entry *LedgerEntry, signed int64) (int64, error) {
	var balance int64
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO ledger_entries (user_id, points, direction, action, related_entity_id,
			                            related_entity_kind, occurred_on, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at
		`, entry.UserID, entry.Points, string(entry.Direction), string(entry.Action),
			entry.RelatedEntityID, entry.RelatedEntityKind, entry.OccurredOn, entry.IdempotencyKey,
		).Scan(&entry.ID, &entry.CreatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return fmt.Errorf("запись %s для user_id=%d: %w", entry.Action, entry.UserID, common.ErrDuplicate)
			}
			return common.Persistence("ошибка записи в журнал", err)
		}

		if err := tx.QueryRow(ctx, upsertBalance, entry.UserID, signed).Scan(&balance); err != nil {
			return common.Persistence("ошибка изменения баланса", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// AdjustBalance меняет баланс одним атомарным upsert без записи в журнал.
func (r *Repository) AdjustBalance(ctx context.Context, userID int64, signed int64) (int64, error) {
	var balance int64
	if err := r.db.QueryRow(ctx, upsertBalance, userID, signed).Scan(&balance); err != nil {
		return 0, common.Persistence("ошибка изменения баланса", err)
	}
	return balance, nil
}

// GetBalance возвращает текущий баланс. Пользователь без начислений имеет баланс 0.
func (r *Repository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT balance FROM balances WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if postgres.IsNoRows(err) {
			return 0, nil
		}
		return 0, common.Persistence("ошибка получения баланса", err)
	}
	return balance, nil
}

// GetStats возвращает полную запись баланса.
func (r *Repository) GetStats(ctx context.Context, userID int64) (*Balance, error) {
	query := `
		SELECT user_id, balance, total_earned, total_spent, created_at, updated_at
		FROM balances
		WHERE user_id = $1
	`
	var b Balance
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&b.UserID, &b.Balance, &b.TotalEarned, &b.TotalSpent, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("баланс user_id=%d: %w", userID, common.ErrNotFound)
		}
		return nil, common.Persistence("ошибка получения статистики", err)
	}
	return &b, nil
}

// ListEntries возвращает последние limit записей пользователя, новые первыми.
func (r *Repository) ListEntries(ctx context.Context, userID int64, limit int) ([]*LedgerEntry, error) {
	query := `
		SELECT id, user_id, points, direction, action, related_entity_id, related_entity_kind,
		       occurred_on, idempotency_key, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, common.Persistence("ошибка получения журнала", err)
	}
	defer rows.Close()

	var entries []*LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var direction, action string
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Points, &direction, &action, &e.RelatedEntityID,
			&e.RelatedEntityKind, &e.OccurredOn, &e.IdempotencyKey, &e.CreatedAt,
		); err != nil {
			return nil, common.Persistence("ошибка сканирования записи журнала", err)
		}
		e.Direction = Direction(direction)
		e.Action = Action(action)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Persistence("ошибка чтения журнала", err)
	}
	return entries, nil
}

// TopBalances возвращает limit лучших балансов: по убыванию, при равенстве — по user_id.
func (r *Repository) TopBalances(ctx context.Context, limit int) ([]*Balance, error) {
	query := `
		SELECT user_id, balance, total_earned, total_spent, created_at, updated_at
		FROM balances
		ORDER BY balance DESC, user_id ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, common.Persistence("ошибка получения рейтинга", err)
	}
	defer rows.Close()

	var balances []*Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.UserID, &b.Balance, &b.TotalEarned, &b.TotalSpent, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, common.Persistence("ошибка сканирования баланса", err)
		}
		balances = append(balances, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Persistence("ошибка чтения рейтинга", err)
	}
	return balances, nil
}
