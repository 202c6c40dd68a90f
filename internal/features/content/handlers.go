// Package content — handlers.go отдаёт вопрос вместе с ответами.
// Создание и удаление идут через геймификацию, здесь только чтение.
package content

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
)

// VoteCounter отдаёт число голосов за контент.
type VoteCounter interface {
	Count(ctx context.Context, contentID string) (int, error)
}

// Handler обрабатывает запросы чтения контента.
type Handler struct {
	service *Service
	votes   VoteCounter
}

// NewHandler создаёт обработчик контента. votes может быть nil: тогда счётчики голосов нулевые.
func NewHandler(service *Service, votes VoteCounter) *Handler {
	return &Handler{service: service, votes: votes}
}

// HandleGetQuestion — GET /questions/:id
func (h *Handler) HandleGetQuestion(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	q, err := h.service.GetQuestion(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	answers, err := h.service.ListAnswers(ctx, id)
	if err != nil {
		log.WithError(err).WithField("question_id", id).Error("Ошибка получения ответов")
		respondError(c, err)
		return
	}
	if answers == nil {
		answers = []*Answer{}
	}

	if q.VoteCount, err = h.voteCount(ctx, q.ID); err != nil {
		respondError(c, err)
		return
	}
	for _, a := range answers {
		if a.VoteCount, err = h.voteCount(ctx, a.ID); err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"question": q, "answers": answers})
}

func (h *Handler) voteCount(ctx context.Context, contentID string) (int, error) {
	if h.votes == nil {
		return 0, nil
	}
	n, err := h.votes.Count(ctx, contentID)
	if err != nil {
		log.WithError(err).WithField("content_id", contentID).Error("Ошибка получения счётчика голосов")
	}
	return n, err
}

func respondError(c *gin.Context, err error) {
	status, code := common.HTTPStatus(err)
	c.JSON(status, gin.H{"error": code})
}
