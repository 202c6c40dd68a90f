package leaderboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/qa-forum/internal/common"
)

var takenAt = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func TestRecordAssignsRanks(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	inserted, err := svc.Record(ctx, "2026-W43", takenAt, []Standing{
		{UserID: 5, Balance: 40},
		{UserID: 2, Balance: 30},
		{UserID: 9, Balance: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	entries, err := svc.Snapshot(ctx, "2026-W43")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(5), entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, int64(9), entries[2].UserID)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestRecordIsOncePerUserAndPeriod(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	standings := []Standing{{UserID: 1, Balance: 10}, {UserID: 2, Balance: 5}}

	_, err := svc.Record(ctx, "2026-W43", takenAt, standings)
	require.NoError(t, err)

	inserted, err := svc.Record(ctx, "2026-W43", takenAt.Add(time.Hour), standings)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	entries, _ := svc.Snapshot(ctx, "2026-W43")
	assert.Len(t, entries, 2)
}

func TestRecordValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	_, err := svc.Record(context.Background(), "", takenAt, []Standing{{UserID: 1}})
	assert.ErrorIs(t, err, common.ErrValidation)

	inserted, err := svc.Record(context.Background(), "2026-W43", takenAt, nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestHandleSnapshot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemoryRepository())
	_, err := svc.Record(context.Background(), "2026-W43", takenAt, []Standing{{UserID: 1, Balance: 10}})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/leaderboard/snapshots/:period", NewHandler(svc).HandleSnapshot)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboard/snapshots/2026-W43", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":1`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboard/snapshots/2020-W01", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
