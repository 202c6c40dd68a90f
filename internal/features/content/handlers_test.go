package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/qa-forum/internal/common"
)

// fixedVotes отдаёт заранее заданные счётчики.
type fixedVotes struct {
	counts map[string]int
	err    error
}

func (v fixedVotes) Count(_ context.Context, contentID string) (int, error) {
	return v.counts[contentID], v.err
}

func getQuestion(h *Handler, id string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/questions/:id", h.HandleGetQuestion)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/questions/"+id, nil))
	return w
}

func TestHandleGetQuestionShowsVotes(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	q, err := svc.CreateQuestion(ctx, NewQuestion{AuthorID: 1, Title: "t", Body: "b"})
	require.NoError(t, err)
	a, err := svc.CreateAnswer(ctx, NewAnswer{QuestionID: q.ID, AuthorID: 2, Body: "ответ"})
	require.NoError(t, err)

	h := NewHandler(svc, fixedVotes{counts: map[string]int{q.ID: 3, a.ID: 1}})
	w := getQuestion(h, q.ID)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"voteCount":3`)
	assert.Contains(t, w.Body.String(), `"voteCount":1`)
	assert.Contains(t, w.Body.String(), `"answerCount":1`)
}

func TestHandleGetQuestionWithoutVotes(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	q, err := svc.CreateQuestion(context.Background(), NewQuestion{AuthorID: 1, Title: "t", Body: "b"})
	require.NoError(t, err)

	w := getQuestion(NewHandler(svc, nil), q.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"voteCount":0`)
	assert.Contains(t, w.Body.String(), `"answers":[]`)
}

func TestHandleGetQuestionErrors(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	w := getQuestion(NewHandler(svc, nil), "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	q, err := svc.CreateQuestion(context.Background(), NewQuestion{AuthorID: 1, Title: "t", Body: "b"})
	require.NoError(t, err)
	broken := fixedVotes{err: common.Persistence("ошибка получения счётчика голосов", errors.New("timeout"))}

	w = getQuestion(NewHandler(svc, broken), q.ID)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, w.Body.String())
}
