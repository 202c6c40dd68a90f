// Package admin реализует ручную корректировку баллов, защищённую ключом администратора.
// models.go описывает запрос корректировки и попытки предъявления ключа.
package admin

import "time"

// AdjustRequest — ручное начисление или списание.
// Points со знаком; Reason попадает только в лог.
type AdjustRequest struct {
	UserID         int64  `json:"userId" validate:"required,gt=0"`
	Points         int64  `json:"points" validate:"required,min=-1000000,max=1000000"`
	Reason         string `json:"reason" validate:"max=200"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,max=100"`
}

// AdjustResult — итог корректировки.
type AdjustResult struct {
	UserID    int64  `json:"userId"`
	Points    int64  `json:"points"`
	RelatedID string `json:"relatedId"`
	Balance   int64  `json:"balance"`
}

// KeyAttempt — попытка предъявить ключ (для защиты от перебора).
type KeyAttempt struct {
	ID          int64     `db:"id"`
	Source      string    `db:"source"` // IP клиента
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}
