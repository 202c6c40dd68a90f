// Package admin — handlers.go содержит middleware проверки ключа и обработчик корректировки.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
)

// HeaderAdminKey — заголовок с ключом администратора.
const HeaderAdminKey = "X-Admin-Key"

// Handler обрабатывает админские запросы.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RequireKey пропускает запрос дальше только с верным ключом в X-Admin-Key.
func (h *Handler) RequireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.service.VerifyKey(c.Request.Context(), c.ClientIP(), c.GetHeader(HeaderAdminKey))
		if err != nil {
			status, code := common.HTTPStatus(err)
			if status >= http.StatusInternalServerError {
				log.WithError(err).Error("Ошибка проверки ключа администратора")
			}
			c.AbortWithStatusJSON(status, gin.H{"error": code})
			return
		}
		c.Next()
	}
}

// HandleAdjust — POST /admin/points
//
// Тело:
//
//	{"userId": 42, "points": -10, "reason": "спам"}
func (h *Handler) HandleAdjust(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	res, err := h.service.Adjust(c.Request.Context(), req)
	if err != nil {
		status, code := common.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).Error("Ошибка корректировки баллов")
		}
		c.JSON(status, gin.H{"error": code})
		return
	}
	c.JSON(http.StatusCreated, res)
}
