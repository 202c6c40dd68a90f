// Package gamification — coordinator.go содержит координатор согласованности.
//
// Создание контента — сага из трёх шагов: контент → стрик → начисление.
// Если стрик не записался, созданный контент удаляется (компенсация).
// Начисление пишется в outbox и попадает в журнал через OutboxWorker.
// Удаление контента списывает баллы синхронно.
package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/config"
	"serotonyl.ru/qa-forum/internal/features/content"
	"serotonyl.ru/qa-forum/internal/features/economy"
	"serotonyl.ru/qa-forum/internal/features/streak"
	"serotonyl.ru/qa-forum/internal/features/votes"
	"serotonyl.ru/qa-forum/internal/metrics"
	"serotonyl.ru/qa-forum/internal/notify"
)

// Dependencies — всё, с чем работает координатор.
type Dependencies struct {
	Content  ContentService
	Streaks  StreakTracker
	Ledger   PointLedger
	Balances BalanceReader
	Votes    VoteToggler
	Outbox   OutboxStore
	Notifier notify.Notifier
	// Wake будит воркер outbox после постановки начисления; может быть nil
	Wake func()
}

// Coordinator выполняет многошаговые операции геймификации.
type Coordinator struct {
	deps Dependencies
	cfg  *config.Config
	now  func() time.Time
}

// NewCoordinator создаёт координатор.
func NewCoordinator(deps Dependencies, cfg *config.Config) *Coordinator {
	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{}
	}
	return &Coordinator{deps: deps, cfg: cfg, now: time.Now}
}

// ActivityResult — итог RecordActivityAndAward.
type ActivityResult struct {
	Success       bool         `json:"success"`
	Updated       bool         `json:"updated"`
	Streak        streak.State `json:"streak"`
	LoginCredited bool         `json:"loginCredited"`
}

// CreateQuestion создаёт вопрос, засчитывает активность автору и ставит начисление в outbox.
// Если стрик не записался, вопрос удаляется и возвращается common.ErrCreateFailed.
func (c *Coordinator) CreateQuestion(ctx context.Context, in content.NewQuestion, offsetMinutes int) (*content.Question, error) {
	q, err := c.deps.Content.CreateQuestion(ctx, in)
	if err != nil {
		return nil, createFailed(err)
	}

	undo := func(ctx context.Context) error { return c.deps.Content.DeleteQuestion(ctx, q.ID) }
	err = c.gate(ctx, gateStep{
		userID:   q.AuthorID,
		offset:   offsetMinutes,
		points:   c.cfg.PointsQuestion,
		action:   economy.ActionPostQuestion,
		kind:     economy.KindQuestion,
		entityID: q.ID,
	}, undo)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// CreateAnswer создаёт ответ (счётчик ответов вопроса растёт вместе с ним).
// При сбое стрика ответ удаляется, а счётчик возвращается к прежнему значению.
func (c *Coordinator) CreateAnswer(ctx context.Context, in content.NewAnswer, offsetMinutes int) (*content.Answer, error) {
	a, err := c.deps.Content.CreateAnswer(ctx, in)
	if err != nil {
		return nil, createFailed(err)
	}

	undo := func(ctx context.Context) error { return c.deps.Content.DeleteAnswer(ctx, a.ID) }
	err = c.gate(ctx, gateStep{
		userID:   a.AuthorID,
		offset:   offsetMinutes,
		points:   c.cfg.PointsAnswer,
		action:   economy.ActionPostAnswer,
		kind:     economy.KindAnswer,
		entityID: a.ID,
	}, undo)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// createFailed приводит сбой хранилища контента к той же ошибке, что и сбой стрика.
// Ошибки клиента остаются как есть.
func createFailed(err error) error {
	if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrCreateFailed, err)
}

type gateStep struct {
	userID   int64
	offset   int
	points   int64
	action   economy.Action
	kind     string
	entityID string
}

// gate — шаги 2-4 саги: стрик, затем начисление в outbox.
func (c *Coordinator) gate(ctx context.Context, step gateStep, undo func(context.Context) error) error {
	now := c.now()

	if _, err := c.deps.Streaks.RecordActivity(ctx, step.userID, step.offset, now); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id":   step.userID,
			"entity":    step.kind,
			"entity_id": step.entityID,
		}).Error("Стрик не записан, откатываем создание")
		c.compensate(ctx, step.kind, step.entityID, undo)
		return fmt.Errorf("%w: %w", common.ErrCreateFailed, err)
	}

	item := &OutboxItem{
		UserID:            step.userID,
		Points:            step.points,
		Action:            step.action,
		RelatedEntityID:   step.entityID,
		RelatedEntityKind: step.kind,
		OccurredOn:        now,
		IdempotencyKey:    "award:" + step.kind + ":" + step.entityID,
		NextAttemptAt:     now,
	}
	if err := c.enqueue(ctx, item); err != nil {
		log.WithError(err).WithField("entity_id", step.entityID).Error("Начисление не поставлено в outbox, откатываем создание")
		c.compensate(ctx, step.kind, step.entityID, undo)
		return fmt.Errorf("%w: %w", common.ErrCreateFailed, err)
	}
	return nil
}

// compensate удаляет созданную сущность. Сбой компенсации не компенсируется дальше:
// он логируется, считается в метриках и уходит дежурным.
func (c *Coordinator) compensate(ctx context.Context, kind, entityID string, undo func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	if err := undo(ctx); err != nil {
		metrics.SagaCompensations.WithLabelValues(kind, "failed").Inc()
		log.WithError(err).WithFields(log.Fields{
			"entity":    kind,
			"entity_id": entityID,
		}).Error("Компенсация не удалась, сущность осталась без стрика")

		text := fmt.Sprintf("⚠️ Осиротевший %s %s: откат после сбоя стрика не удался: %v", kind, entityID, err)
		if nerr := c.deps.Notifier.Notify(ctx, text); nerr != nil {
			log.WithError(nerr).Warn("Не удалось уведомить дежурных")
		}
		return
	}

	metrics.SagaCompensations.WithLabelValues(kind, "ok").Inc()
	log.WithFields(log.Fields{
		"entity":    kind,
		"entity_id": entityID,
	}).Warn("Создание откатано")
}

func (c *Coordinator) enqueue(ctx context.Context, item *OutboxItem) error {
	if err := c.deps.Outbox.Enqueue(ctx, item); err != nil {
		return err
	}
	metrics.OutboxEnqueued.Inc()
	if c.deps.Wake != nil {
		c.deps.Wake()
	}
	return nil
}

// DeleteQuestion удаляет вопрос автора вместе с ответами и списывает баллы за вопрос.
func (c *Coordinator) DeleteQuestion(ctx context.Context, questionID string, userID int64) error {
	q, err := c.deps.Content.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if q.AuthorID != userID {
		return fmt.Errorf("вопрос %s: %w", questionID, common.ErrForbidden)
	}

	if err := c.deps.Content.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	c.purgeVotes(ctx, questionID)

	return c.reverseAward(ctx, q.AuthorID, c.cfg.PointsQuestion, economy.ActionDeleteQuestion, economy.KindQuestion, q.ID)
}

// DeleteAnswer удаляет ответ автора и списывает баллы за ответ.
func (c *Coordinator) DeleteAnswer(ctx context.Context, answerID string, userID int64) error {
	a, err := c.deps.Content.GetAnswer(ctx, answerID)
	if err != nil {
		return err
	}
	if a.AuthorID != userID {
		return fmt.Errorf("ответ %s: %w", answerID, common.ErrForbidden)
	}

	if err := c.deps.Content.DeleteAnswer(ctx, answerID); err != nil {
		return err
	}
	c.purgeVotes(ctx, answerID)

	return c.reverseAward(ctx, a.AuthorID, c.cfg.PointsAnswer, economy.ActionDeleteAnswer, economy.KindAnswer, a.ID)
}

func (c *Coordinator) purgeVotes(ctx context.Context, contentID string) {
	if err := c.deps.Votes.Purge(ctx, contentID); err != nil {
		log.WithError(err).WithField("content_id", contentID).Warn("Не удалось удалить голоса удалённого контента")
	}
}

// reverseAward списывает начисление за удалённую сущность.
//
// Алгоритм:
//  1. Если начисление ещё ждёт в outbox — отменяем его, списывать нечего
//  2. Иначе синхронно пишем отрицательную запись (ключ идемпотентности reverse:<kind>:<id>)
//  3. Если журнал недоступен — ставим то же списание в outbox; ошибка только если и это не удалось
func (c *Coordinator) reverseAward(ctx context.Context, userID, points int64, action economy.Action, kind, entityID string) error {
	now := c.now()

	cancelled, err := c.deps.Outbox.CancelPending(ctx, kind, entityID, now)
	if err != nil {
		log.WithError(err).WithField("entity_id", entityID).Warn("Не удалось отменить начисление в outbox, списываем")
	}
	if cancelled > 0 {
		log.WithFields(log.Fields{
			"user_id":   userID,
			"entity_id": entityID,
		}).Info("Начисление ещё не применено, отменено в outbox")
		return nil
	}

	key := "reverse:" + kind + ":" + entityID
	_, err = c.deps.Ledger.Append(ctx, economy.AppendRequest{
		UserID:            userID,
		Points:            -points,
		Action:            action,
		RelatedEntityID:   entityID,
		RelatedEntityKind: kind,
		OccurredOn:        now,
		IdempotencyKey:    key,
	})
	if err == nil || errors.Is(err, common.ErrDuplicate) {
		return nil
	}
	if errors.Is(err, common.ErrValidation) {
		return err
	}

	log.WithError(err).WithField("entity_id", entityID).Warn("Списание не записано, переносим в outbox")
	qerr := c.enqueue(ctx, &OutboxItem{
		UserID:            userID,
		Points:            -points,
		Action:            action,
		RelatedEntityID:   entityID,
		RelatedEntityKind: kind,
		OccurredOn:        now,
		IdempotencyKey:    key,
		NextAttemptAt:     now,
	})
	if qerr != nil {
		return fmt.Errorf("списание за %s %s: %w", kind, entityID, err)
	}
	return nil
}

// ContentOwner возвращает автора вопроса или ответа.
func (c *Coordinator) ContentOwner(ctx context.Context, kind, contentID string) (int64, error) {
	switch kind {
	case economy.KindQuestion:
		q, err := c.deps.Content.GetQuestion(ctx, contentID)
		if err != nil {
			return 0, err
		}
		return q.AuthorID, nil
	case economy.KindAnswer:
		a, err := c.deps.Content.GetAnswer(ctx, contentID)
		if err != nil {
			return 0, err
		}
		return a.AuthorID, nil
	default:
		return 0, common.Validation("неизвестный вид контента %q", kind)
	}
}

// ToggleVote переключает голос voterID за контент ownerID.
// Владельцу начисляется (или списывается) балл, если он не голосует сам за себя.
// Если журнал не принял запись, голос переключается обратно и ошибка возвращается.
func (c *Coordinator) ToggleVote(ctx context.Context, kind, contentID string, voterID, ownerID int64) (*votes.Result, error) {
	res, err := c.deps.Votes.Toggle(ctx, contentID, voterID)
	if err != nil {
		return nil, err
	}
	if ownerID == voterID {
		return res, nil
	}

	points, action := c.cfg.PointsUpvote, economy.ActionUpvoteReceived
	if res.Direction == votes.DirectionDown {
		points, action = -points, economy.ActionUpvoteLost
	}

	_, err = c.deps.Ledger.Append(ctx, economy.AppendRequest{
		UserID:            ownerID,
		Points:            points,
		Action:            action,
		RelatedEntityID:   contentID,
		RelatedEntityKind: kind,
		OccurredOn:        c.now(),
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"content_id": contentID,
			"voter_id":   voterID,
		}).Error("Балл за голос не записан, откатываем голос")

		if _, rerr := c.deps.Votes.Toggle(context.WithoutCancel(ctx), contentID, voterID); rerr != nil {
			metrics.SagaCompensations.WithLabelValues("vote", "failed").Inc()
			log.WithError(rerr).WithField("content_id", contentID).Error("Не удалось откатить голос")
		} else {
			metrics.SagaCompensations.WithLabelValues("vote", "ok").Inc()
		}
		return nil, err
	}
	return res, nil
}

// RecordActivityAndAward засчитывает активность в стрик.
// Для входа дополнительно начисляет баллы за первый вход дня; повтор в тот же день не ошибка.
func (c *Coordinator) RecordActivityAndAward(ctx context.Context, userID int64, kind streak.ActivityKind, offsetMinutes int) (*ActivityResult, error) {
	if !kind.Valid() {
		return nil, common.Validation("неизвестный вид активности %q", kind)
	}
	now := c.now()

	res, err := c.deps.Streaks.RecordActivity(ctx, userID, offsetMinutes, now)
	if err != nil {
		return nil, err
	}

	out := &ActivityResult{Success: true, Updated: res.Updated, Streak: res.State}
	if kind == streak.ActivityLogin {
		credited, err := c.deps.Ledger.CreditDailyLogin(ctx, userID, c.cfg.PointsDailyLogin, now)
		if err != nil {
			return nil, err
		}
		out.LoginCredited = credited
	}
	return out, nil
}

// AwardPoints синхронно начисляет баллы.
func (c *Coordinator) AwardPoints(ctx context.Context, userID, points int64, action economy.Action, relatedID, relatedKind string) error {
	_, err := c.deps.Ledger.Append(ctx, economy.AppendRequest{
		UserID:            userID,
		Points:            abs(points),
		Action:            action,
		RelatedEntityID:   relatedID,
		RelatedEntityKind: relatedKind,
		OccurredOn:        c.now(),
	})
	return err
}

// AwardPointsAsync ставит начисление в outbox; в журнал его перенесёт воркер.
func (c *Coordinator) AwardPointsAsync(ctx context.Context, userID, points int64, action economy.Action, relatedID, relatedKind string) error {
	if userID <= 0 || points == 0 || relatedID == "" || relatedKind == "" {
		return common.Validation("неполный запрос на начисление")
	}
	now := c.now()
	return c.enqueue(ctx, &OutboxItem{
		UserID:            userID,
		Points:            abs(points),
		Action:            action,
		RelatedEntityID:   relatedID,
		RelatedEntityKind: relatedKind,
		OccurredOn:        now,
		IdempotencyKey:    fmt.Sprintf("award:%s:%s:%s", relatedKind, relatedID, action),
		NextAttemptAt:     now,
	})
}

// ReversePoints синхронно списывает баллы.
func (c *Coordinator) ReversePoints(ctx context.Context, userID, points int64, action economy.Action, relatedID, relatedKind string) error {
	_, err := c.deps.Ledger.Append(ctx, economy.AppendRequest{
		UserID:            userID,
		Points:            -abs(points),
		Action:            action,
		RelatedEntityID:   relatedID,
		RelatedEntityKind: relatedKind,
		OccurredOn:        c.now(),
	})
	return err
}

// GetBalance возвращает текущий баланс пользователя.
func (c *Coordinator) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return c.deps.Balances.Read(ctx, userID)
}

// GetStreak возвращает стрик пользователя.
func (c *Coordinator) GetStreak(ctx context.Context, userID int64) (*streak.State, error) {
	return c.deps.Streaks.Get(ctx, userID)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
