// Package content хранит вопросы и ответы форума.
// Это коллаборатор геймификации: сага создаёт и при сбое удаляет контент через него.
package content

import "time"

// Question — вопрос форума.
type Question struct {
	ID          string    `json:"id" db:"id"` // UUIDv7
	AuthorID    int64     `json:"authorId" db:"author_id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	AnswerCount int       `json:"answerCount" db:"answer_count"`
	VoteCount   int       `json:"voteCount" db:"-"` // заполняется при чтении из счётчика голосов
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Answer — ответ на вопрос.
type Answer struct {
	ID         string    `json:"id" db:"id"`
	QuestionID string    `json:"questionId" db:"question_id"`
	AuthorID   int64     `json:"authorId" db:"author_id"`
	Body       string    `json:"body" db:"body"`
	VoteCount  int       `json:"voteCount" db:"-"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// NewQuestion — данные для создания вопроса.
type NewQuestion struct {
	AuthorID int64  `json:"-" validate:"required,gt=0"`
	Title    string `json:"title" validate:"required,max=300"`
	Body     string `json:"body" validate:"required,max=20000"`
}

// NewAnswer — данные для создания ответа.
type NewAnswer struct {
	QuestionID string `json:"-" validate:"required,max=64"`
	AuthorID   int64  `json:"-" validate:"required,gt=0"`
	Body       string `json:"body" validate:"required,max=20000"`
}
