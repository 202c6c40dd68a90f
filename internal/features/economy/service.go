// Package economy — service.go содержит журнал баллов (Ledger) и хранилище балансов (BalanceStore).
// Баланс меняется только вместе с записью журнала; исключение — ручной Adjust.
package economy

import (
	"context"
	"errors"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/metrics"
	"serotonyl.ru/qa-forum/internal/validation"
)

// DefaultHistoryLimit — сколько записей журнала отдаём по умолчанию.
const DefaultHistoryLimit = 20

// Ledger — журнал движений баллов. Только добавление, записи не редактируются.
type Ledger struct {
	store Store
}

// NewLedger создаёт журнал поверх хранилища.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Append проверяет запрос, записывает запись и меняет баланс на ±|points|.
//
// Ошибки:
//   - common.ErrValidation: не хватает полей или points == 0, ничего не записано
//   - common.ErrDuplicate: ежедневный вход за этот день уже засчитан (не фатально)
//   - common.ErrPersistence: сбой хранилища
func (l *Ledger) Append(ctx context.Context, req AppendRequest) (*AppendResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	points := req.Points
	if points < 0 {
		points = -points
	}
	entry := &LedgerEntry{
		UserID:            req.UserID,
		Points:            points,
		Direction:         DirectionFor(req.Points),
		Action:            req.Action,
		RelatedEntityID:   req.RelatedEntityID,
		RelatedEntityKind: req.RelatedEntityKind,
		OccurredOn:        common.DayStart(req.OccurredOn),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		entry.IdempotencyKey = &key
	}

	balance, err := l.store.AppendEntry(ctx, entry, req.Points)
	if err != nil {
		if errors.Is(err, common.ErrDuplicate) {
			metrics.LedgerDuplicates.WithLabelValues(string(req.Action)).Inc()
			log.WithFields(log.Fields{
				"user_id": req.UserID,
				"action":  req.Action,
			}).Debug("Повторная запись в журнал отклонена")
			return nil, err
		}
		log.WithError(err).WithFields(log.Fields{
			"user_id": req.UserID,
			"action":  req.Action,
			"points":  req.Points,
		}).Error("Ошибка записи в журнал")
		return nil, err
	}

	metrics.LedgerEntries.WithLabelValues(string(entry.Action), string(entry.Direction)).Inc()
	log.WithFields(log.Fields{
		"user_id": entry.UserID,
		"action":  entry.Action,
		"amount":  common.FormatPointsAmount(req.Points),
		"balance": balance,
	}).Debug("Запись добавлена в журнал")

	return &AppendResult{Entry: entry, Balance: balance}, nil
}

// CreditDailyLogin начисляет баллы за первый вход в календарный день.
// Повторный вход в тот же день возвращает (false, nil): «уже начислено» — не ошибка.
func (l *Ledger) CreditDailyLogin(ctx context.Context, userID int64, points int64, now time.Time) (bool, error) {
	_, err := l.Append(ctx, AppendRequest{
		UserID:            userID,
		Points:            points,
		Action:            ActionDailyLogin,
		RelatedEntityID:   strconv.FormatInt(userID, 10),
		RelatedEntityKind: KindUser,
		OccurredOn:        now,
	})
	if errors.Is(err, common.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// History возвращает последние записи журнала пользователя, новые первыми.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]*LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultHistoryLimit
	}
	return l.store.ListEntries(ctx, userID, limit)
}

// BalanceStore — текущие балансы пользователей.
type BalanceStore struct {
	store Store
}

// NewBalanceStore создаёт хранилище балансов.
func NewBalanceStore(store Store) *BalanceStore {
	return &BalanceStore{store: store}
}

// Adjust меняет баланс на signed с полом в нуле и возвращает новое значение.
// Изменение атомарно на уровне строки, потерянных обновлений нет.
func (b *BalanceStore) Adjust(ctx context.Context, userID int64, signed int64) (int64, error) {
	return b.store.AdjustBalance(ctx, userID, signed)
}

// Read возвращает текущий баланс (0 для пользователя без начислений).
func (b *BalanceStore) Read(ctx context.Context, userID int64) (int64, error) {
	return b.store.GetBalance(ctx, userID)
}

// Stats возвращает баланс вместе с суммами заработанного и потраченного.
// Для пользователя без начислений — нулевая запись.
func (b *BalanceStore) Stats(ctx context.Context, userID int64) (*Balance, error) {
	stats, err := b.store.GetStats(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return &Balance{UserID: userID}, nil
	}
	return stats, err
}

// Top возвращает limit лучших балансов.
func (b *BalanceStore) Top(ctx context.Context, limit int) ([]*Balance, error) {
	return b.store.TopBalances(ctx, limit)
}
