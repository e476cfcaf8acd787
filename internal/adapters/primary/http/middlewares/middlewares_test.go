package middlewares

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	route  string
	status int
}

type fakeRecorder struct {
	calls []recorded
}

func (f *fakeRecorder) RecordHTTPRequest(route string, status int, _ time.Duration) {
	f.calls = append(f.calls, recorded{route: route, status: status})
}

func TestRecoveryLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := logger.NewWithWriter("test", &logger.Config{Level: "debug", Encoding: "json"}, &buf)

	router := gin.New()
	router.Use(RecoveryLogger(log))
	router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), `"route":"/boom"`)
}

func TestRequestMetrics_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &fakeRecorder{}

	router := gin.New()
	router.Use(RequestMetrics(rec))
	router.GET("/admin/users/:messengerId", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/users/psid-42", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, rec.calls, 2)
	assert.Equal(t, recorded{route: "/admin/users/:messengerId", status: http.StatusNoContent}, rec.calls[0])
	assert.Equal(t, recorded{route: "unmatched", status: http.StatusNotFound}, rec.calls[1])
}
