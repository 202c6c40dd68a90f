// Package gamification — worker.go переносит начисления из outbox в журнал.
// Повтор доставки безопасен: у каждого элемента свой ключ идемпотентности,
// и журнал отвергает вторую запись с тем же ключом.
package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/config"
	"serotonyl.ru/qa-forum/internal/features/economy"
	"serotonyl.ru/qa-forum/internal/metrics"
	"serotonyl.ru/qa-forum/internal/notify"
)

// OutboxWorker разбирает outbox пачками.
type OutboxWorker struct {
	store    OutboxStore
	ledger   PointLedger
	notifier notify.Notifier

	batchSize    int
	maxAttempts  int
	retryDelay   time.Duration
	pollInterval time.Duration
	lease        time.Duration

	wake chan struct{}
	now  func() time.Time
}

// NewOutboxWorker создаёт воркер.
func NewOutboxWorker(store OutboxStore, ledger PointLedger, notifier notify.Notifier, cfg *config.Config) *OutboxWorker {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &OutboxWorker{
		store:        store,
		ledger:       ledger,
		notifier:     notifier,
		batchSize:    cfg.OutboxBatchSize,
		maxAttempts:  cfg.OutboxMaxAttempts,
		retryDelay:   cfg.OutboxRetryDelay,
		pollInterval: cfg.OutboxPollInterval,
		lease:        cfg.OutboxLease,
		wake:         make(chan struct{}, 1),
		now:          time.Now,
	}
}

// Kick будит воркер, не дожидаясь следующего тика. Не блокирует.
func (w *OutboxWorker) Kick() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run обрабатывает outbox, пока не отменён ctx.
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	log.WithField("interval", w.pollInterval).Info("Воркер outbox запущен")
	for {
		select {
		case <-ctx.Done():
			log.Info("Воркер outbox остановлен")
			return
		case <-ticker.C:
		case <-w.wake:
		}

		if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Ошибка обработки outbox")
		}
	}
}

// Drain забирает одну пачку и обрабатывает её. Возвращает число обработанных элементов.
func (w *OutboxWorker) Drain(ctx context.Context) (int, error) {
	items, err := w.store.Claim(ctx, w.now(), w.batchSize, w.lease)
	if err != nil {
		return 0, err
	}

	for _, item := range items {
		if err := w.process(ctx, item); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

func (w *OutboxWorker) process(ctx context.Context, item *OutboxItem) error {
	key := item.IdempotencyKey
	if key == "" {
		key = fmt.Sprintf("outbox:%d", item.ID)
	}

	_, err := w.ledger.Append(ctx, economy.AppendRequest{
		UserID:            item.UserID,
		Points:            item.Points,
		Action:            item.Action,
		RelatedEntityID:   item.RelatedEntityID,
		RelatedEntityKind: item.RelatedEntityKind,
		OccurredOn:        item.OccurredOn,
		IdempotencyKey:    key,
	})

	fields := log.Fields{
		"outbox_id": item.ID,
		"user_id":   item.UserID,
		"action":    item.Action,
		"attempt":   item.Attempts + 1,
	}

	switch {
	case err == nil:
		metrics.OutboxProcessed.WithLabelValues("done").Inc()
		log.WithFields(fields).Debug("Начисление из outbox записано")
		return w.store.Complete(ctx, item.ID)

	case errors.Is(err, common.ErrDuplicate):
		metrics.OutboxProcessed.WithLabelValues("duplicate").Inc()
		log.WithFields(fields).Debug("Начисление из outbox уже было записано")
		return w.store.Complete(ctx, item.ID)

	case errors.Is(err, common.ErrValidation):
		// Повтор не поможет
		return w.bury(ctx, item, err, fields)

	case item.Attempts+1 >= w.maxAttempts:
		return w.bury(ctx, item, err, fields)

	default:
		next := w.now().Add(time.Duration(item.Attempts+1) * w.retryDelay)
		metrics.OutboxProcessed.WithLabelValues("retry").Inc()
		log.WithError(err).WithFields(fields).WithField("next_attempt_at", next).Warn("Начисление не записано, повторим позже")
		return w.store.Retry(ctx, item.ID, next, err.Error())
	}
}

func (w *OutboxWorker) bury(ctx context.Context, item *OutboxItem, cause error, fields log.Fields) error {
	metrics.OutboxProcessed.WithLabelValues("dead").Inc()
	log.WithError(cause).WithFields(fields).Error("Начисление из outbox отброшено")

	if err := w.store.Bury(ctx, item.ID, cause.Error()); err != nil {
		return err
	}

	text := fmt.Sprintf("⚠️ Начисление #%d (%s, user %d, %s) не записано после %d попыток: %v",
		item.ID, item.Action, item.UserID, common.FormatPointsAmount(item.Points), item.Attempts+1, cause)
	if err := w.notifier.Notify(ctx, text); err != nil {
		log.WithError(err).Warn("Не удалось уведомить дежурных")
	}
	return nil
}
