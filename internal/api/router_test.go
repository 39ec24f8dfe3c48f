package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"novasport-checker/internal/mw"
)

func newTestRouter(s *mockStore, opts *webpush.Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(s, opts, UserscriptParams{Email: "me@uni.be", Port: 9090, Interval: 15}, nil)
	return NewRouter(handler, mw.NewIPRateLimiter(rate.Limit(1000), 1000), time.Minute)
}

func do(r http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestGetToken(t *testing.T) {
	t.Run("no token yet", func(t *testing.T) {
		w := do(newTestRouter(&mockStore{}, nil), "GET", "/token", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, msgNoToken, w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("latest token", func(t *testing.T) {
		s := &mockStore{LatestTokenFunc: func(ctx context.Context) (string, error) { return "abc", nil }}
		w := do(newTestRouter(s, nil), "GET", "/token", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"token":"abc"}`, w.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		s := &mockStore{LatestTokenFunc: func(ctx context.Context) (string, error) { return "", errors.New("boom") }}
		w := do(newTestRouter(s, nil), "GET", "/token", "", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestPostToken(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		response    string
		saved       string
	}{
		{
			name:        "valid token",
			contentType: "application/json",
			body:        `{"token":"abc"}`,
			status:      http.StatusOK,
			response:    `{"updatedToken":"abc"}`,
			saved:       "abc",
		},
		{
			name:        "content type with charset",
			contentType: "application/json; charset=utf-8",
			body:        `{"token":"def"}`,
			status:      http.StatusOK,
			response:    `{"updatedToken":"def"}`,
			saved:       "def",
		},
		{
			name:        "wrong content type",
			contentType: "text/plain",
			body:        `{"token":"abc"}`,
			status:      http.StatusBadRequest,
			response:    msgNeedJSONHeader,
		},
		{
			name:        "missing key",
			contentType: "application/json",
			body:        `{}`,
			status:      http.StatusBadRequest,
			response:    msgTokenAbsent,
		},
		{
			name:        "empty token",
			contentType: "application/json",
			body:        `{"token":""}`,
			status:      http.StatusBadRequest,
			response:    msgTokenAbsent,
		},
		{
			name:        "null token",
			contentType: "application/json",
			body:        `{"token":null}`,
			status:      http.StatusBadRequest,
			response:    msgTokenAbsent,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var saved string
			s := &mockStore{SaveTokenFunc: func(ctx context.Context, value string) error {
				saved = value
				return nil
			}}

			w := do(newTestRouter(s, nil), "POST", "/token", tc.contentType, tc.body)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, tc.response, w.Body.String())
			} else {
				assert.Equal(t, tc.response, w.Body.String())
			}
			assert.Equal(t, tc.saved, saved, "nothing is stored on a rejected POST")
		})
	}
}

func TestPreflight(t *testing.T) {
	w := do(newTestRouter(&mockStore{}, nil), "OPTIONS", "/token", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "POST, GET", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestUserscript(t *testing.T) {
	r := newTestRouter(&mockStore{}, nil)

	for _, path := range UserscriptPaths {
		t.Run(path, func(t *testing.T) {
			w := do(r, "GET", path, "", "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/javascript")
			body := w.Body.String()
			assert.Contains(t, body, "// ==UserScript==")
			assert.Contains(t, body, ".me@uni.be.accessToken")
			assert.Contains(t, body, `const URL = "http://localhost:9090/token";`)
			assert.Contains(t, body, "const INTERVAL = 15 * 1000;")
		})
	}

	w := do(r, "GET", "/userscript", "", "")
	assert.Equal(t, "HIT", w.Header().Get(mw.CacheStatusHeader))
}

func TestGetVAPIDPublicKey(t *testing.T) {
	w := do(newTestRouter(&mockStore{}, nil), "GET", "/api/vapid_public_key", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(newTestRouter(&mockStore{}, &webpush.Options{VAPIDPublicKey: "pub"}), "GET", "/api/vapid_public_key", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"pub"}`, w.Body.String())
}

func TestRouter_RateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(&mockStore{}, nil, UserscriptParams{}, nil)
	r := NewRouter(handler, mw.NewIPRateLimiter(rate.Limit(1), 1), time.Minute)

	assert.Equal(t, http.StatusBadRequest, do(r, "GET", "/token", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "GET", "/token", "", "").Code)
}
