// Package economy управляет баллами StarDust: журналом начислений и балансами.
// models.go описывает записи журнала, балансы и запрос на добавление записи.
package economy

import "time"

// Direction — направление движения баллов.
type Direction string

const (
	DirectionIn  Direction = "in"  // начисление
	DirectionOut Direction = "out" // списание
)

// DirectionFor выводит направление из знака суммы: положительная — in, иначе out.
func DirectionFor(signedPoints int64) Direction {
	if signedPoints > 0 {
		return DirectionIn
	}
	return DirectionOut
}

// Action — за что начислены или списаны баллы.
type Action string

const (
	ActionPostQuestion   Action = "postQuestion"
	ActionPostAnswer     Action = "postAnswer"
	ActionDeleteQuestion Action = "deleteQuestion"
	ActionDeleteAnswer   Action = "deleteAnswer"
	ActionUpvoteReceived Action = "upvoteReceived"
	ActionUpvoteLost     Action = "upvoteLost"
	ActionDailyLogin     Action = "dailyLogin"
	ActionAdminAdjust    Action = "adminAdjust"
)

// Виды связанных сущностей
const (
	KindQuestion   = "question"
	KindAnswer     = "answer"
	KindUser       = "user"
	KindAdjustment = "adjustment"
)

// LedgerEntry — неизменяемая запись журнала.
// Points всегда положительный модуль суммы, знак хранится в Direction.
type LedgerEntry struct {
	ID                int64     `db:"id"`
	UserID            int64     `db:"user_id"`
	Points            int64     `db:"points"`
	Direction         Direction `db:"direction"`
	Action            Action    `db:"action"`
	RelatedEntityID   string    `db:"related_entity_id"`
	RelatedEntityKind string    `db:"related_entity_kind"`
	OccurredOn        time.Time `db:"occurred_on"`     // календарный день, 00:00 UTC
	IdempotencyKey    *string   `db:"idempotency_key"` // nil — без ключа
	CreatedAt         time.Time `db:"created_at"`
}

// Signed возвращает сумму записи со знаком.
func (e *LedgerEntry) Signed() int64 {
	if e.Direction == DirectionOut {
		return -e.Points
	}
	return e.Points
}

// Balance — текущий баланс пользователя.
// Баланс не обязан совпадать с суммой журнала: уход в минус обрезается до нуля.
type Balance struct {
	UserID      int64     `db:"user_id"`
	Balance     int64     `db:"balance"`
	TotalEarned int64     `db:"total_earned"`
	TotalSpent  int64     `db:"total_spent"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// AppendRequest — запрос на добавление записи в журнал.
// Points передаётся со знаком: >0 начисление, <0 списание, 0 недопустим.
type AppendRequest struct {
	UserID            int64     `validate:"required"`
	Points            int64     `validate:"required"`
	Action            Action    `validate:"required,oneof=postQuestion postAnswer deleteQuestion deleteAnswer upvoteReceived upvoteLost dailyLogin adminAdjust"`
	RelatedEntityID   string    `validate:"required,max=64"`
	RelatedEntityKind string    `validate:"required,max=32"`
	OccurredOn        time.Time `validate:"required"`
	IdempotencyKey    string    `validate:"omitempty,max=128"`
}

// AppendResult — результат добавления записи: сама запись и новый баланс.
type AppendResult struct {
	Entry   *LedgerEntry
	Balance int64
}
