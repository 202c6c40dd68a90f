package content

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"serotonyl.ru/qa-forum/internal/common"
)

// MemoryRepository — Store в памяти процесса.
type MemoryRepository struct {
	mu        sync.Mutex
	questions map[string]Question
	answers   map[string]Answer
}

// NewMemoryRepository создаёт пустое хранилище контента.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		questions: make(map[string]Question),
		answers:   make(map[string]Answer),
	}
}

// InsertQuestion сохраняет вопрос.
func (m *MemoryRepository) InsertQuestion(_ context.Context, q *Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; ok {
		return fmt.Errorf("вопрос %s: %w", q.ID, common.ErrDuplicate)
	}
	q.AnswerCount = 0
	q.CreatedAt = time.Now()
	m.questions[q.ID] = *q
	return nil
}

// InsertAnswer сохраняет ответ и увеличивает счётчик ответов вопроса.
func (m *MemoryRepository) InsertAnswer(_ context.Context, a *Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[a.QuestionID]
	if !ok {
		return fmt.Errorf("вопрос %s: %w", a.QuestionID, common.ErrNotFound)
	}
	q.AnswerCount++
	m.questions[q.ID] = q
	a.CreatedAt = time.Now()
	m.answers[a.ID] = *a
	return nil
}

// GetQuestion возвращает копию вопроса.
func (m *MemoryRepository) GetQuestion(_ context.Context, id string) (*Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, fmt.Errorf("вопрос %s: %w", id, common.ErrNotFound)
	}
	return &q, nil
}

// GetAnswer возвращает копию ответа.
func (m *MemoryRepository) GetAnswer(_ context.Context, id string) (*Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[id]
	if !ok {
		return nil, fmt.Errorf("ответ %s: %w", id, common.ErrNotFound)
	}
	return &a, nil
}

// ListAnswers возвращает ответы на вопрос по времени создания.
func (m *MemoryRepository) ListAnswers(_ context.Context, questionID string) ([]*Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var answers []*Answer
	for _, a := range m.answers {
		if a.QuestionID == questionID {
			answers = append(answers, &a)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].CreatedAt.Equal(answers[j].CreatedAt) {
			return answers[i].ID < answers[j].ID
		}
		return answers[i].CreatedAt.Before(answers[j].CreatedAt)
	})
	return answers, nil
}

// DeleteQuestion удаляет вопрос вместе с ответами.
func (m *MemoryRepository) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return fmt.Errorf("вопрос %s: %w", id, common.ErrNotFound)
	}
	delete(m.questions, id)
	for aid, a := range m.answers {
		if a.QuestionID == id {
			delete(m.answers, aid)
		}
	}
	return nil
}

// DeleteAnswer удаляет ответ и уменьшает счётчик ответов.
func (m *MemoryRepository) DeleteAnswer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[id]
	if !ok {
		return fmt.Errorf("ответ %s: %w", id, common.ErrNotFound)
	}
	delete(m.answers, id)
	if q, ok := m.questions[a.QuestionID]; ok {
		q.AnswerCount = max(0, q.AnswerCount-1)
		m.questions[q.ID] = q
	}
	return nil
}
