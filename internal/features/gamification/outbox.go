// Package gamification — outbox.go хранит отложенные начисления баллов.
// Начисление пишется в outbox до ответа клиенту, а воркер переносит его в журнал
// с повторами. Элемент забирается под аренду (locked_until), поэтому несколько
// экземпляров сервиса не обработают его одновременно.
package gamification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/features/economy"
)

// OutboxStatus — состояние элемента outbox.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxDone      OutboxStatus = "done"
	OutboxDead      OutboxStatus = "dead"      // исчерпаны попытки
	OutboxCancelled OutboxStatus = "cancelled" // контент удалён до начисления
)

// OutboxItem — отложенная запись в журнал. Points со знаком.
type OutboxItem struct {
	ID                int64
	UserID            int64
	Points            int64
	Action            economy.Action
	RelatedEntityID   string
	RelatedEntityKind string
	OccurredOn        time.Time
	IdempotencyKey    string
	Status            OutboxStatus
	Attempts          int
	NextAttemptAt     time.Time
	LockedUntil       *time.Time
	LastError         *string
	CreatedAt         time.Time
}

// OutboxStore — хранилище outbox. Реализации: OutboxRepository (PostgreSQL) и MemoryOutbox.
type OutboxStore interface {
	Enqueue(ctx context.Context, item *OutboxItem) error
	// Claim забирает до limit просроченных pending-элементов под аренду до now+lease.
	Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*OutboxItem, error)
	Complete(ctx context.Context, id int64) error
	// Retry увеличивает attempts и откладывает элемент до next.
	Retry(ctx context.Context, id int64, next time.Time, lastErr string) error
	// Bury помечает элемент dead.
	Bury(ctx context.Context, id int64, lastErr string) error
	// CancelPending отменяет ещё не взятые в работу начисления (points > 0) по сущности.
	CancelPending(ctx context.Context, kind, entityID string, now time.Time) (int, error)
}

// OutboxRepository — PostgreSQL-реализация OutboxStore над таблицей point_outbox.
type OutboxRepository struct {
	db *pgxpool.Pool
}

// NewOutboxRepository создаёт репозиторий outbox.
func NewOutboxRepository(db *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue вставляет элемент и проставляет ему ID.
func (r *OutboxRepository) Enqueue(ctx context.Context, item *OutboxItem) error {
	query := `
		INSERT INTO point_outbox (user_id, points, action, related_entity_id, related_entity_kind,
		                          occurred_on, idempotency_key, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, status, attempts, created_at
	`
	var status string
	err := r.db.QueryRow(ctx, query,
		item.UserID, item.Points, string(item.Action), item.RelatedEntityID, item.RelatedEntityKind,
		item.OccurredOn, item.IdempotencyKey, item.NextAttemptAt,
	).Scan(&item.ID, &status, &item.Attempts, &item.CreatedAt)
	if err != nil {
		return common.Persistence("ошибка записи в outbox", err)
	}
	item.Status = OutboxStatus(status)
	return nil
}

// Claim забирает элементы через FOR UPDATE SKIP LOCKED:
// параллельные воркеры получают непересекающиеся пачки.
func (r *OutboxRepository) Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*OutboxItem, error) {
	query := `
		WITH due AS (
			SELECT id FROM point_outbox
			WHERE status = 'pending'
			  AND next_attempt_at <= $1
			  AND (locked_until IS NULL OR locked_until < $1)
			ORDER BY next_attempt_at, id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE point_outbox o
		SET locked_until = $3, updated_at = NOW()
		FROM due
		WHERE o.id = due.id
		RETURNING o.id, o.user_id, o.points, o.action, o.related_entity_id, o.related_entity_kind,
		          o.occurred_on, o.idempotency_key, o.status, o.attempts, o.next_attempt_at,
		          o.locked_until, o.last_error, o.created_at
	`
	rows, err := r.db.Query(ctx, query, now, limit, now.Add(lease))
	if err != nil {
		return nil, common.Persistence("ошибка выборки outbox", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*OutboxItem, error) {
		var it OutboxItem
		var action, status string
		err := row.Scan(&it.ID, &it.UserID, &it.Points, &action, &it.RelatedEntityID, &it.RelatedEntityKind,
			&it.OccurredOn, &it.IdempotencyKey, &status, &it.Attempts, &it.NextAttemptAt,
			&it.LockedUntil, &it.LastError, &it.CreatedAt)
		it.Action = economy.Action(action)
		it.Status = OutboxStatus(status)
		return &it, err
	})
	if err != nil {
		return nil, common.Persistence("ошибка чтения outbox", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Complete помечает элемент доставленным.
func (r *OutboxRepository) Complete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE point_outbox
		SET status = 'done', locked_until = NULL, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return common.Persistence("ошибка завершения элемента outbox", err)
	}
	return nil
}

// Retry возвращает элемент в очередь до момента next.
func (r *OutboxRepository) Retry(ctx context.Context, id int64, next time.Time, lastErr string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE point_outbox
		SET attempts = attempts + 1, next_attempt_at = $2, last_error = $3,
		    locked_until = NULL, updated_at = NOW()
		WHERE id = $1
	`, id, next, lastErr)
	if err != nil {
		return common.Persistence("ошибка переноса элемента outbox", err)
	}
	return nil
}

// Bury переводит элемент в dead после исчерпания попыток.
func (r *OutboxRepository) Bury(ctx context.Context, id int64, lastErr string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE point_outbox
		SET status = 'dead', attempts = attempts + 1, last_error = $2,
		    locked_until = NULL, updated_at = NOW()
		WHERE id = $1
	`, id, lastErr)
	if err != nil {
		return common.Persistence("ошибка пометки элемента outbox", err)
	}
	return nil
}

// CancelPending отменяет невыданные начисления за сущность.
func (r *OutboxRepository) CancelPending(ctx context.Context, kind, entityID string, now time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE point_outbox
		SET status = 'cancelled', updated_at = NOW()
		WHERE related_entity_kind = $1 AND related_entity_id = $2
		  AND status = 'pending' AND points > 0
		  AND (locked_until IS NULL OR locked_until < $3)
	`, kind, entityID, now)
	if err != nil {
		return 0, common.Persistence("ошибка отмены начисления", err)
	}
	return int(tag.RowsAffected()), nil
}

// MemoryOutbox — OutboxStore в памяти процесса.
type MemoryOutbox struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*OutboxItem
}

// NewMemoryOutbox создаёт пустой outbox.
func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{items: make(map[int64]*OutboxItem)}
}

// Enqueue кладёт копию элемента в очередь.
func (m *MemoryOutbox) Enqueue(_ context.Context, item *OutboxItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	item.ID = m.nextID
	item.Status = OutboxPending
	item.Attempts = 0
	item.CreatedAt = time.Now()
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

// Claim выдаёт до limit готовых элементов и ставит им аренду на lease.
func (m *MemoryOutbox) Claim(_ context.Context, now time.Time, limit int, lease time.Duration) ([]*OutboxItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*OutboxItem
	for _, it := range m.items {
		if it.Status != OutboxPending || it.NextAttemptAt.After(now) {
			continue
		}
		if it.LockedUntil != nil && !it.LockedUntil.Before(now) {
			continue
		}
		due = append(due, it)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	if len(due) > limit {
		due = due[:limit]
	}

	until := now.Add(lease)
	claimed := make([]*OutboxItem, 0, len(due))
	for _, it := range due {
		it.LockedUntil = &until
		cp := *it
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (m *MemoryOutbox) update(id int64, fn func(it *OutboxItem)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("элемент outbox %d: %w", id, common.ErrNotFound)
	}
	fn(it)
	return nil
}

// Complete помечает элемент доставленным.
func (m *MemoryOutbox) Complete(_ context.Context, id int64) error {
	return m.update(id, func(it *OutboxItem) {
		it.Status = OutboxDone
		it.LockedUntil = nil
	})
}

// Retry откладывает элемент до next.
func (m *MemoryOutbox) Retry(_ context.Context, id int64, next time.Time, lastErr string) error {
	return m.update(id, func(it *OutboxItem) {
		it.Attempts++
		it.NextAttemptAt = next
		it.LastError = &lastErr
		it.LockedUntil = nil
	})
}

// Bury хоронит элемент.
func (m *MemoryOutbox) Bury(_ context.Context, id int64, lastErr string) error {
	return m.update(id, func(it *OutboxItem) {
		it.Status = OutboxDead
		it.Attempts++
		it.LastError = &lastErr
		it.LockedUntil = nil
	})
}

// CancelPending отменяет невыданные начисления за сущность.
func (m *MemoryOutbox) CancelPending(_ context.Context, kind, entityID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancelled := 0
	for _, it := range m.items {
		if it.RelatedEntityKind != kind || it.RelatedEntityID != entityID {
			continue
		}
		if it.Status != OutboxPending || it.Points <= 0 {
			continue
		}
		if it.LockedUntil != nil && !it.LockedUntil.Before(now) {
			continue
		}
		it.Status = OutboxCancelled
		cancelled++
	}
	return cancelled, nil
}

// Get возвращает копию элемента; нужен для проверок в тестах и отладки.
func (m *MemoryOutbox) Get(id int64) (OutboxItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return OutboxItem{}, false
	}
	return *it, true
}
