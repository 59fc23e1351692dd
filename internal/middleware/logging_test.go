package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petwatch/internal/config"
	"petwatch/internal/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.NewLogger(&config.Config{LogDirectory: filepath.Join(t.TempDir(), "logs")})
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecoverMiddleware(t *testing.T) {
	l := newTestLogger(t)
	h := RecoverMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	data, err := os.ReadFile(filepath.Join(l.Dir(), logger.ErrorFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "boom")
}

func TestLoggingMiddleware_RecordsStatus(t *testing.T) {
	l := newTestLogger(t)
	h := LoggingMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	data, err := os.ReadFile(filepath.Join(l.Dir(), logger.InfoFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "GET /teapot -> 418")
}
