package gamification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/features/economy"
)

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.coord)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		c.Set(common.ContextUserID, id)
	})
	r.POST("/questions", h.HandleCreateQuestion)
	r.POST("/questions/:id/answers", h.HandleCreateAnswer)
	r.DELETE("/questions/:id", h.HandleDeleteQuestion)
	r.POST("/questions/:id/vote", h.HandleVote(economy.KindQuestion))
	r.POST("/activity", h.HandleActivity)
	return r
}

func do(r http.Handler, method, path string, userID int64, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleCreateQuestion(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	w := do(r, http.MethodPost, "/questions", 1, `{"title":"Что такое канал?","body":"...","timezoneOffset":180}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Question struct {
			ID       string `json:"id"`
			AuthorID int64  `json:"authorId"`
		} `json:"question"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Question.ID)

	f.drain(t)
	assert.Equal(t, int64(2), f.balance(t, 1))

	st, err := f.tracker.Get(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
}

func TestHandleCreateQuestionRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	w := do(r, http.MethodPost, "/questions", 1, `{"title":"","body":"..."}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid_request"}`, w.Body.String())

	w = do(r, http.MethodPost, "/questions", 1, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreateQuestionStreakFailure(t *testing.T) {
	f := newFixture(t)
	f.rewire(func(d *Dependencies) { d.Streaks = brokenTracker{} })
	r := newTestRouter(f)

	w := do(r, http.MethodPost, "/questions", 1, `{"title":"t","body":"b"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"create_failed"}`, w.Body.String())
}

func TestHandleCreateFailuresLookAlike(t *testing.T) {
	body := func(mutate func(d *Dependencies)) (int, string) {
		f := newFixture(t)
		f.rewire(mutate)
		w := do(newTestRouter(f), http.MethodPost, "/questions", 1, `{"title":"t","body":"b"}`)
		return w.Code, w.Body.String()
	}

	streakCode, streakBody := body(func(d *Dependencies) { d.Streaks = brokenTracker{} })
	storeCode, storeBody := body(func(d *Dependencies) { d.Content = unwritableContent{ContentService: d.Content} })
	outboxCode, outboxBody := body(func(d *Dependencies) { d.Outbox = brokenOutbox{OutboxStore: d.Outbox} })

	assert.Equal(t, http.StatusInternalServerError, streakCode)
	assert.Equal(t, streakCode, storeCode)
	assert.Equal(t, streakCode, outboxCode)
	assert.Equal(t, streakBody, storeBody)
	assert.Equal(t, streakBody, outboxBody)
}

func TestHandleVoteRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	q := f.question(t, 1)
	f.drain(t)
	f.rewire(func(d *Dependencies) { d.Votes = racedVotes{VoteToggler: d.Votes} })

	w := do(newTestRouter(f), http.MethodPost, "/questions/"+q.ID+"/vote", 2, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"conflict"}`, w.Body.String())
	assert.Equal(t, int64(2), f.balance(t, 1))
}

func TestHandleCreateAnswerUnknownQuestion(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	w := do(r, http.MethodPost, "/questions/nope/answers", 2, `{"body":"b"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDeleteQuestionForbidden(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)
	q := f.question(t, 1)

	w := do(r, http.MethodDelete, "/questions/"+q.ID, 2, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodDelete, "/questions/"+q.ID, 1, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleVote(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)
	q := f.question(t, 1)
	f.drain(t)

	w := do(r, http.MethodPost, "/questions/"+q.ID+"/vote", 2, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"direction":"up","count":1}`, w.Body.String())
	assert.Equal(t, int64(3), f.balance(t, 1))

	w = do(r, http.MethodPost, "/questions/"+q.ID+"/vote", 2, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"direction":"down","count":0}`, w.Body.String())
	assert.Equal(t, int64(2), f.balance(t, 1))

	w = do(r, http.MethodPost, "/questions/missing/vote", 2, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleActivity(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	w := do(r, http.MethodPost, "/activity", 5, `{}`, HeaderTimezoneOffset, "-300")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success       bool  `json:"success"`
		Updated       bool  `json:"updated"`
		LoginCredited bool  `json:"loginCredited"`
		Balance       int64 `json:"balance"`
		Streak        struct {
			CurrentStreak int `json:"currentStreak"`
		} `json:"streak"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Updated)
	assert.True(t, resp.LoginCredited)
	assert.Equal(t, int64(1), resp.Balance)
	assert.Equal(t, 1, resp.Streak.CurrentStreak)

	// Второй вход в тот же день
	w = do(r, http.MethodPost, "/activity", 5, `{"kind":"login"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Updated)
	assert.False(t, resp.LoginCredited)
	assert.Equal(t, int64(1), resp.Balance)

	w = do(r, http.MethodPost, "/activity", 5, `{"kind":"dance"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOffsetFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header string
		body   any
		want   int
	}{
		{"заголовок важнее тела", "120", float64(60), 120},
		{"заголовок с пробелами", " -90 ", nil, -90},
		{"мусор в заголовке", "abc", float64(60), 0},
		{"число в теле", "", float64(330), 330},
		{"дробное число", "", 5.5, 0},
		{"строка в теле", "", "45", 45},
		{"булево значение", "", true, 0},
		{"ничего", "", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set(HeaderTimezoneOffset, tt.header)
			}
			assert.Equal(t, tt.want, offsetFrom(c, tt.body))
		})
	}
}
