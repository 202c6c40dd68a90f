// Package server собирает HTTP-API сервиса на gin.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/features/admin"
	"serotonyl.ru/qa-forum/internal/features/content"
	"serotonyl.ru/qa-forum/internal/features/economy"
	"serotonyl.ru/qa-forum/internal/features/gamification"
	"serotonyl.ru/qa-forum/internal/features/leaderboard"
	"serotonyl.ru/qa-forum/internal/features/streak"
)

// Dependencies — обработчики и инфраструктура для роутера.
type Dependencies struct {
	Gamification *gamification.Handler
	Economy      *economy.Handler
	Streak       *streak.Handler
	Leaderboard  *leaderboard.Handler
	Content      *content.Handler
	Admin        *admin.Handler // nil — админка не регистрируется
	Limiter      *RateLimiter   // nil — без ограничения частоты
	AllowOrigins []string
	// Ping проверяет хранилище для /healthz; nil — всегда здоров.
	Ping func(ctx context.Context) error
}

// NewRouter регистрирует маршруты.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), RequestLogger(), Metrics())

	origins := deps.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", HeaderUserID, gamification.HeaderTimezoneOffset, admin.HeaderAdminKey},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/healthz", healthz(deps.Ping))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limit := func(c *gin.Context) { c.Next() }
	if deps.Limiter != nil {
		limit = RateLimit(deps.Limiter)
	}

	public := r.Group("/api/v1", limit)
	public.GET("/questions/:id", deps.Content.HandleGetQuestion)
	public.GET("/users/:id/balance", deps.Economy.HandleBalance)
	public.GET("/users/:id/ledger", deps.Economy.HandleHistory)
	public.GET("/users/:id/streak", deps.Streak.HandleGet)
	public.GET("/leaderboard", deps.Economy.HandleTop)
	public.GET("/leaderboard/snapshots/:period", deps.Leaderboard.HandleSnapshot)

	g := deps.Gamification
	authed := r.Group("/api/v1", Identity(), limit)
	authed.POST("/questions", g.HandleCreateQuestion)
	authed.POST("/questions/:id/answers", g.HandleCreateAnswer)
	authed.DELETE("/questions/:id", g.HandleDeleteQuestion)
	authed.POST("/questions/:id/vote", g.HandleVote(economy.KindQuestion))
	authed.DELETE("/answers/:id", g.HandleDeleteAnswer)
	authed.POST("/answers/:id/vote", g.HandleVote(economy.KindAnswer))
	authed.POST("/activity", g.HandleActivity)

	if deps.Admin != nil {
		r.POST("/admin/points", limit, deps.Admin.RequireKey(), deps.Admin.HandleAdjust)
	} else {
		log.Info("ADMIN_KEY_HASH не задан, /admin отключён")
	}

	return r
}

func healthz(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				log.WithError(err).Warn("Проверка здоровья не прошла")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
