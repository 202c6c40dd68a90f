package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/qa-forum/internal/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", config.StorageDriverMemory)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("ADMIN_KEY_HASH", "")
	t.Setenv("HTTP_ADDRESS", "127.0.0.1:0")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func newMemoryApp(t *testing.T) *App {
	t.Helper()
	a, err := New(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func call(t *testing.T, h http.Handler, method, path string, userID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func balanceOf(t *testing.T, h http.Handler, userID string) int64 {
	t.Helper()
	w := call(t, h, http.MethodGet, "/api/v1/users/"+userID+"/balance", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Balance int64 `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Balance
}

// extractID достаёт поле id из {"<key>": {...}}.
func extractID(t *testing.T, body []byte, key string) string {
	t.Helper()
	var resp map[string]struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp[key].ID)
	return resp[key].ID
}

func TestMemoryAppEndToEnd(t *testing.T) {
	a := newMemoryApp(t)
	h := a.Handler
	ctx := context.Background()

	assert.Nil(t, a.DB)

	w := call(t, h, http.MethodPost, "/api/v1/questions", "1", `{"title":"Как работает select?","body":"..."}`)
	require.Equal(t, http.StatusCreated, w.Code)
	qid := extractID(t, w.Body.Bytes(), "question")

	_, err := a.Worker.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), balanceOf(t, h, "1"))

	w = call(t, h, http.MethodPost, "/api/v1/questions/"+qid+"/answers", "2", `{"body":"Ждёт первый готовый канал"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(t, h, http.MethodPost, "/api/v1/questions/"+qid+"/vote", "2", "")
	require.Equal(t, http.StatusOK, w.Code)

	_, err = a.Worker.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balanceOf(t, h, "1"))
	assert.Equal(t, int64(3), balanceOf(t, h, "2"))

	w = call(t, h, http.MethodGet, "/api/v1/questions/"+qid, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"answerCount":1`)
	assert.Contains(t, w.Body.String(), `"voteCount":1`)

	w = call(t, h, http.MethodDelete, "/api/v1/questions/"+qid, "1", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(1), balanceOf(t, h, "1"))

	w = call(t, h, http.MethodGet, "/api/v1/users/1/ledger", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"action":"deleteQuestion"`)

	w = call(t, h, http.MethodGet, "/api/v1/leaderboard", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":2`)

	n, err := a.Reconciler.RunReconciliationPass(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWritesRequireIdentity(t *testing.T) {
	a := newMemoryApp(t)

	w := call(t, a.Handler, http.MethodPost, "/api/v1/questions", "", `{"title":"t","body":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, a.Handler, http.MethodPost, "/api/v1/activity", "abc", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminDisabledWithoutHash(t *testing.T) {
	a := newMemoryApp(t)

	w := call(t, a.Handler, http.MethodPost, "/admin/points", "", `{"userId":1,"points":5}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	a := newMemoryApp(t)

	w := call(t, a.Handler, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = call(t, a.Handler, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	a := newMemoryApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
}
