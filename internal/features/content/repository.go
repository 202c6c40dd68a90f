// Package content — repository.go выполняет операции с таблицами questions и answers.
// Ответ и счётчик ответов вопроса меняются в одной транзакции.
package content

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/db/postgres"
)

// Store — хранилище контента. Реализации: Repository (PostgreSQL) и MemoryRepository.
type Store interface {
	InsertQuestion(ctx context.Context, q *Question) error
	// InsertAnswer создаёт ответ и увеличивает answer_count вопроса.
	// Если вопроса нет — common.ErrNotFound.
	InsertAnswer(ctx context.Context, a *Answer) error
	GetQuestion(ctx context.Context, id string) (*Question, error)
	GetAnswer(ctx context.Context, id string) (*Answer, error)
	ListAnswers(ctx context.Context, questionID string) ([]*Answer, error)
	// DeleteQuestion удаляет вопрос вместе с ответами.
	DeleteQuestion(ctx context.Context, id string) error
	// DeleteAnswer удаляет ответ и уменьшает answer_count вопроса.
	DeleteAnswer(ctx context.Context, id string) error
}

// Repository — PostgreSQL-реализация Store.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий контента.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const bumpAnswerCount = `
	UPDATE questions
	SET answer_count = GREATEST(0, answer_count + $2)
	WHERE id = $1
`

// InsertQuestion вставляет вопрос и читает из БД answer_count и created_at.
func (r *Repository) InsertQuestion(ctx context.Context, q *Question) error {
	query := `
		INSERT INTO questions (id, author_id, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING answer_count, created_at
	`
	err := r.db.QueryRow(ctx, query, q.ID, q.AuthorID, q.Title, q.Body).Scan(&q.AnswerCount, &q.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("вопрос %s: %w", q.ID, common.ErrDuplicate)
		}
		return common.Persistence("ошибка создания вопроса", err)
	}
	return nil
}

// InsertAnswer вставляет ответ и увеличивает answer_count вопроса в одной транзакции.
func (r *Repository) InsertAnswer(ctx context.Context, a *Answer) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, bumpAnswerCount, a.QuestionID, 1)
		if err != nil {
			return common.Persistence("ошибка обновления счётчика ответов", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("вопрос %s: %w", a.QuestionID, common.ErrNotFound)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO answers (id, question_id, author_id, body)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`, a.ID, a.QuestionID, a.AuthorID, a.Body).Scan(&a.CreatedAt)
		if err != nil {
			return common.Persistence("ошибка создания ответа", err)
		}
		return nil
	})
}

// GetQuestion получает вопрос по ID.
func (r *Repository) GetQuestion(ctx context.Context, id string) (*Question, error) {
	query := `
		SELECT id, author_id, title, body, answer_count, created_at
		FROM questions
		WHERE id = $1
	`
	var q Question
	err := r.db.QueryRow(ctx, query, id).Scan(&q.ID, &q.AuthorID, &q.Title, &q.Body, &q.AnswerCount, &q.CreatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("вопрос %s: %w", id, common.ErrNotFound)
		}
		return nil, common.Persistence("ошибка получения вопроса", err)
	}
	return &q, nil
}

// GetAnswer получает ответ по ID.
func (r *Repository) GetAnswer(ctx context.Context, id string) (*Answer, error) {
	query := `
		SELECT id, question_id, author_id, body, created_at
		FROM answers
		WHERE id = $1
	`
	var a Answer
	err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Body, &a.CreatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("ответ %s: %w", id, common.ErrNotFound)
		}
		return nil, common.Persistence("ошибка получения ответа", err)
	}
	return &a, nil
}

// ListAnswers возвращает ответы вопроса в порядке создания.
func (r *Repository) ListAnswers(ctx context.Context, questionID string) ([]*Answer, error) {
	query := `
		SELECT id, question_id, author_id, body, created_at
		FROM answers
		WHERE question_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, questionID)
	if err != nil {
		return nil, common.Persistence("ошибка получения ответов", err)
	}
	defer rows.Close()

	var answers []*Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Body, &a.CreatedAt); err != nil {
			return nil, common.Persistence("ошибка сканирования ответа", err)
		}
		answers = append(answers, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Persistence("ошибка чтения ответов", err)
	}
	return answers, nil
}

// DeleteQuestion удаляет вопрос; ответы удаляет ON DELETE CASCADE.
func (r *Repository) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return common.Persistence("ошибка удаления вопроса", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("вопрос %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// DeleteAnswer удаляет ответ и уменьшает answer_count вопроса.
func (r *Repository) DeleteAnswer(ctx context.Context, id string) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var questionID string
		err := tx.QueryRow(ctx, `DELETE FROM answers WHERE id = $1 RETURNING question_id`, id).Scan(&questionID)
		if err != nil {
			if postgres.IsNoRows(err) {
				return fmt.Errorf("ответ %s: %w", id, common.ErrNotFound)
			}
			return common.Persistence("ошибка удаления ответа", err)
		}
		if _, err := tx.Exec(ctx, bumpAnswerCount, questionID, -1); err != nil {
			return common.Persistence("ошибка обновления счётчика ответов", err)
		}
		return nil
	})
}
