package handler

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

	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
	"github.com/zhouzirui/z-chat/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-chat/backend/internal/service/chat"
)

type fixedRelay struct{}

func (fixedRelay) Reply(context.Context, string) ai.Result {
	return ai.Result{Reply: "ok", Outcome: ai.OutcomeOK}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	router, err := NewRouter(chatservice.NewService(chat.NewMemoryStore(), fixedRelay{}))
	require.NoError(t, err)
	return router
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		OK   bool   `json:"ok"`
		Time string `json:"time"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)

	ts, err := time.Parse(time.RFC3339Nano, body.Time)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestRoutesMounted(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/api/history?session_id=s1", "", http.StatusOK},
		{http.MethodPost, "/api/chat", `{"text":"hello"}`, http.StatusOK},
		{http.MethodGet, "/static/app.js", "", http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		if tc.body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assert.Equal(t, tc.want, resp.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, "http://example.com", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header().Get("Access-Control-Allow-Credentials"))
}
