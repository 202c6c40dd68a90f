// Package gamification — handlers.go обрабатывает запросы, проходящие через координатор:
// создание и удаление контента, голоса и регистрацию активности.
package gamification

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/features/content"
	"serotonyl.ru/qa-forum/internal/features/streak"
)

// HeaderTimezoneOffset — смещение часового пояса клиента в минутах.
const HeaderTimezoneOffset = "X-Timezone-Offset"

// Handler обрабатывает HTTP-запросы геймификации.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler создаёт обработчик.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

type createQuestionRequest struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	TimezoneOffset any    `json:"timezoneOffset"`
}

type createAnswerRequest struct {
	Body           string `json:"body"`
	TimezoneOffset any    `json:"timezoneOffset"`
}

type activityRequest struct {
	Kind           streak.ActivityKind `json:"kind"`
	TimezoneOffset any                 `json:"timezoneOffset"`
}

// HandleCreateQuestion — POST /questions
func (h *Handler) HandleCreateQuestion(c *gin.Context) {
	var req createQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	q, err := h.coordinator.CreateQuestion(c.Request.Context(), content.NewQuestion{
		AuthorID: c.GetInt64(common.ContextUserID),
		Title:    req.Title,
		Body:     req.Body,
	}, offsetFrom(c, req.TimezoneOffset))
	if err != nil {
		respondError(c, err, "Ошибка создания вопроса")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": q})
}

// HandleCreateAnswer — POST /questions/:id/answers
func (h *Handler) HandleCreateAnswer(c *gin.Context) {
	var req createAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	a, err := h.coordinator.CreateAnswer(c.Request.Context(), content.NewAnswer{
		QuestionID: c.Param("id"),
		AuthorID:   c.GetInt64(common.ContextUserID),
		Body:       req.Body,
	}, offsetFrom(c, req.TimezoneOffset))
	if err != nil {
		respondError(c, err, "Ошибка создания ответа")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"answer": a})
}

// HandleDeleteQuestion — DELETE /questions/:id
func (h *Handler) HandleDeleteQuestion(c *gin.Context) {
	err := h.coordinator.DeleteQuestion(c.Request.Context(), c.Param("id"), c.GetInt64(common.ContextUserID))
	if err != nil {
		respondError(c, err, "Ошибка удаления вопроса")
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleDeleteAnswer — DELETE /answers/:id
func (h *Handler) HandleDeleteAnswer(c *gin.Context) {
	err := h.coordinator.DeleteAnswer(c.Request.Context(), c.Param("id"), c.GetInt64(common.ContextUserID))
	if err != nil {
		respondError(c, err, "Ошибка удаления ответа")
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleVote возвращает обработчик POST /questions/:id/vote или /answers/:id/vote.
// kind — economy.KindQuestion или economy.KindAnswer.
func (h *Handler) HandleVote(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		contentID := c.Param("id")

		ownerID, err := h.coordinator.ContentOwner(ctx, kind, contentID)
		if err != nil {
			respondError(c, err, "Ошибка получения автора контента")
			return
		}

		res, err := h.coordinator.ToggleVote(ctx, kind, contentID, c.GetInt64(common.ContextUserID), ownerID)
		if err != nil {
			respondError(c, err, "Ошибка переключения голоса")
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// HandleActivity — POST /activity
//
// Тело:
//
//	{"kind": "login", "timezoneOffset": 180}
func (h *Handler) HandleActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.Kind == "" {
		req.Kind = streak.ActivityLogin
	}

	ctx := c.Request.Context()
	userID := c.GetInt64(common.ContextUserID)

	res, err := h.coordinator.RecordActivityAndAward(ctx, userID, req.Kind, offsetFrom(c, req.TimezoneOffset))
	if err != nil {
		respondError(c, err, "Ошибка регистрации активности")
		return
	}

	balance, err := h.coordinator.GetBalance(ctx, userID)
	if err != nil {
		respondError(c, err, "Ошибка получения баланса")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       res.Success,
		"updated":       res.Updated,
		"streak":        res.Streak,
		"loginCredited": res.LoginCredited,
		"balance":       balance,
	})
}

// offsetFrom берёт смещение из заголовка, а если его нет — из тела.
// Всё, что не является целым числом минут, превращается в 0.
func offsetFrom(c *gin.Context, body any) int {
	if raw := c.GetHeader(HeaderTimezoneOffset); raw != "" {
		return common.ParseOffset(raw)
	}
	switch v := body.(type) {
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return 0
		}
		return int(v)
	case string:
		return common.ParseOffset(v)
	default:
		return 0
	}
}

func respondError(c *gin.Context, err error, msg string) {
	status, code := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error(msg)
	} else {
		log.WithError(err).Debug(msg)
	}
	c.JSON(status, gin.H{"error": code})
}
