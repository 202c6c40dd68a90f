// Package streak — handlers.go отдаёт стрик пользователя.
package streak

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
)

// Handler обрабатывает запросы стрик-системы.
type Handler struct {
	tracker *Tracker
}

// NewHandler создаёт новый обработчик стриков.
func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// HandleGet — GET /users/:id/streak
//
// Ответ:
//
//	{"streak": {...}, "summary": "Текущая серия: 8 дней, лучшая: 12 дней"}
func (h *Handler) HandleGet(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_id"})
		return
	}

	state, err := h.tracker.Get(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения стрика")
		status, code := common.HTTPStatus(err)
		c.JSON(status, gin.H{"error": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"streak":  state,
		"summary": Summary(state),
	})
}

// Summary — человекочитаемое описание стрика.
func Summary(s *State) string {
	return fmt.Sprintf("Текущая серия: %d %s, лучшая: %d %s",
		s.CurrentStreak, common.PluralizeDays(s.CurrentStreak),
		s.LongestStreak, common.PluralizeDays(s.LongestStreak))
}
