package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthzReportsStorage(t *testing.T) {
	healthy := NewRouter(Dependencies{})
	w := serve(healthy, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	healthy.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	broken := NewRouter(Dependencies{
		Ping: func(context.Context) error { return errors.New("connection refused") },
	})
	w = httptest.NewRecorder()
	broken.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	r := NewRouter(Dependencies{AllowOrigins: []string{"https://forum.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/questions", nil)
	req.Header.Set("Origin", "https://forum.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", HeaderUserID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://forum.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnauthenticatedWriteRejected(t *testing.T) {
	r := NewRouter(Dependencies{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers/abc/vote", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
