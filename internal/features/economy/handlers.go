// Package economy — handlers.go обрабатывает запросы:
// баланс пользователя, история журнала и живой рейтинг.
package economy

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/common"
)

// Handler обрабатывает HTTP-запросы экономики.
type Handler struct {
	ledger   *Ledger
	balances *BalanceStore
	topSize  int
}

// NewHandler создаёт обработчик. topSize — размер живого рейтинга.
func NewHandler(ledger *Ledger, balances *BalanceStore, topSize int) *Handler {
	return &Handler{ledger: ledger, balances: balances, topSize: topSize}
}

type balanceResponse struct {
	UserID      int64 `json:"userId"`
	Balance     int64 `json:"balance"`
	TotalEarned int64 `json:"totalEarned"`
	TotalSpent  int64 `json:"totalSpent"`
}

type entryResponse struct {
	ID                int64     `json:"id"`
	Points            int64     `json:"points"`
	Direction         Direction `json:"direction"`
	Action            Action    `json:"action"`
	RelatedEntityID   string    `json:"relatedEntityId"`
	RelatedEntityKind string    `json:"relatedEntityKind"`
	OccurredOn        string    `json:"occurredOn"`
	CreatedAt         time.Time `json:"createdAt"`
}

// HandleBalance — GET /users/:id/balance
func (h *Handler) HandleBalance(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	stats, err := h.balances.Stats(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, balanceResponse{
		UserID:      userID,
		Balance:     stats.Balance,
		TotalEarned: stats.TotalEarned,
		TotalSpent:  stats.TotalSpent,
	})
}

// HandleHistory — GET /users/:id/ledger?limit=N
func (h *Handler) HandleHistory(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.ledger.History(c.Request.Context(), userID, limit)
	if err != nil {
		log.WithError(err).Error("Ошибка получения журнала")
		respondError(c, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:                e.ID,
			Points:            e.Points,
			Direction:         e.Direction,
			Action:            e.Action,
			RelatedEntityID:   e.RelatedEntityID,
			RelatedEntityKind: e.RelatedEntityKind,
			OccurredOn:        e.OccurredOn.Format(time.DateOnly),
			CreatedAt:         e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

// HandleTop — GET /leaderboard
func (h *Handler) HandleTop(c *gin.Context) {
	top, err := h.balances.Top(c.Request.Context(), h.topSize)
	if err != nil {
		log.WithError(err).Error("Ошибка получения рейтинга")
		respondError(c, err)
		return
	}

	type row struct {
		Rank    int   `json:"rank"`
		UserID  int64 `json:"userId"`
		Balance int64 `json:"balance"`
	}
	rows := make([]row, 0, len(top))
	for i, b := range top {
		rows = append(rows, row{Rank: i + 1, UserID: b.UserID, Balance: b.Balance})
	}
	c.JSON(http.StatusOK, gin.H{"leaders": rows})
}

func userIDParam(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_id"})
		return 0, false
	}
	return userID, true
}

func respondError(c *gin.Context, err error) {
	status, code := common.HTTPStatus(err)
	c.JSON(status, gin.H{"error": code})
}
