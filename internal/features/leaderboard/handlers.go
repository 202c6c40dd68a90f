// Package leaderboard — handlers.go отдаёт сохранённые снимки.
package leaderboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
)

// Handler обрабатывает запросы снимков рейтинга.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик снимков.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleSnapshot — GET /leaderboard/snapshots/:period
func (h *Handler) HandleSnapshot(c *gin.Context) {
	period := c.Param("period")

	entries, err := h.service.Snapshot(c.Request.Context(), period)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			log.WithError(err).WithField("period", period).Error("Ошибка получения снимка рейтинга")
		}
		status, code := common.HTTPStatus(err)
		c.JSON(status, gin.H{"error": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{"period": period, "entries": entries})
}
