// Package content — service.go создаёт, читает и удаляет вопросы и ответы.
package content

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/validation"
)

// Service управляет контентом форума.
type Service struct {
	store Store
}

// NewService создаёт сервис контента.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// newID выдаёт UUIDv7, упорядоченный по времени создания.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("ошибка генерации id: %w", err)
	}
	return id.String(), nil
}

// CreateQuestion проверяет и сохраняет вопрос.
func (s *Service) CreateQuestion(ctx context.Context, in NewQuestion) (*Question, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}

	q := &Question{ID: id, AuthorID: in.AuthorID, Title: in.Title, Body: in.Body}
	if err := s.store.InsertQuestion(ctx, q); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"question_id": q.ID,
		"author_id":   q.AuthorID,
	}).Info("Вопрос создан")
	return q, nil
}

// CreateAnswer сохраняет ответ и увеличивает счётчик ответов вопроса.
// Ответ на несуществующий вопрос — common.ErrNotFound.
func (s *Service) CreateAnswer(ctx context.Context, in NewAnswer) (*Answer, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}

	a := &Answer{ID: id, QuestionID: in.QuestionID, AuthorID: in.AuthorID, Body: in.Body}
	if err := s.store.InsertAnswer(ctx, a); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"answer_id":   a.ID,
		"question_id": a.QuestionID,
		"author_id":   a.AuthorID,
	}).Info("Ответ создан")
	return a, nil
}

// GetQuestion возвращает вопрос или common.ErrNotFound.
func (s *Service) GetQuestion(ctx context.Context, id string) (*Question, error) {
	return s.store.GetQuestion(ctx, id)
}

// GetAnswer возвращает ответ или common.ErrNotFound.
func (s *Service) GetAnswer(ctx context.Context, id string) (*Answer, error) {
	return s.store.GetAnswer(ctx, id)
}

// ListAnswers возвращает ответы на вопрос, старые первыми.
func (s *Service) ListAnswers(ctx context.Context, questionID string) ([]*Answer, error) {
	return s.store.ListAnswers(ctx, questionID)
}

// DeleteQuestion удаляет вопрос со всеми ответами.
func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	log.WithField("question_id", id).Info("Вопрос удалён")
	return nil
}

// DeleteAnswer удаляет ответ; счётчик ответов вопроса уменьшается.
func (s *Service) DeleteAnswer(ctx context.Context, id string) error {
	if err := s.store.DeleteAnswer(ctx, id); err != nil {
		return err
	}
	log.WithField("answer_id", id).Info("Ответ удалён")
	return nil
}
