package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopops/backoffice/pkg/logging"
)

func testRouter(t *testing.T) (*gin.Engine, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	cfg := logging.DefaultConfig("backoffice-test")
	cfg.Output = &buf
	logger := logging.New(cfg)

	router := gin.New()
	config := DefaultConfig("backoffice-test", logger.Logger)
	config.MallID = "teashop"
	Setup(router, config)

	router.GET("/health", HealthCheck("backoffice-test"))
	router.GET("/orders", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.GET("/boom", func(c *gin.Context) { panic("nil receiver") })
	return router, &buf
}

func logLines(t *testing.T, buf *bytes.Buffer, msg string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == msg {
			out = append(out, entry)
		}
	}
	return out
}

func TestSetup_LogsRequestsWithRequestScope(t *testing.T) {
	router, buf := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/orders?page=2", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))

	entries := logLines(t, buf, "HTTP request")
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0]["requestId"])
	assert.Equal(t, "teashop", entries[0]["mallId"])
	assert.Equal(t, "/orders", entries[0]["path"])
	assert.Equal(t, "page=2", entries[0]["query"])
	assert.EqualValues(t, 200, entries[0]["status"])
}

func TestSetup_SkipsHealthLogging(t *testing.T) {
	router, buf := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, logLines(t, buf, "HTTP request"))
}

func TestRecovery_RendersInternalError(t *testing.T) {
	router, buf := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "req-2")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Code)

	entries := logLines(t, buf, "Panic recovered")
	require.Len(t, entries, 1)
	assert.Equal(t, "nil receiver", entries[0]["panic"])
	assert.Equal(t, "req-2", entries[0]["requestId"])
	assert.Equal(t, "/boom", entries[0]["path"])
	assert.NotEmpty(t, entries[0]["stack"])
}
