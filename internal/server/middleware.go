// Package server — middleware.go содержит промежуточные обработчики для логирования,
// восстановления после паники, rate-limiting, идентификации и метрик.
package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/metrics"
)

// HeaderUserID — идентификатор пользователя, проставленный шлюзом аутентификации.
const HeaderUserID = "X-User-ID"

// RequestLogger логирует запрос после обработки.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		})
		if id, ok := c.Get(common.ContextUserID); ok {
			entry = entry.WithField("user_id", id)
		}
		entry.Debug("HTTP-запрос")
	}
}

// Recovery превращает панику в обработчике в 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"panic":     fmt.Sprintf("%v", r),
					"path":      c.Request.URL.Path,
					"stack":     string(debug.Stack()),
				}).Error("ПАНИКА в обработчике — восстановлено")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			}
		}()
		c.Next()
	}
}

// Identity берёт пользователя из X-User-ID. Без него запрос отклоняется с 401.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(common.ContextUserID, id)
		c.Next()
	}
}

// RateLimit ограничивает частоту запросов: по пользователю, если он известен, иначе по IP.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := c.GetInt64(common.ContextUserID); id > 0 {
			key = "user:" + strconv.FormatInt(id, 10)
		}
		if !rl.Allow(key) {
			log.WithField("key", key).Debug("Превышен лимит запросов")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}

// Metrics пишет длительность запроса в гистограмму по шаблону маршрута.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
