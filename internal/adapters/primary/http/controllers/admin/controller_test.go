package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/inmemory"
	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, *domain.User, *domain.Reading) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)

	users := inmemory.NewUserRepo()
	readings := inmemory.NewReadingRepo()

	user := domain.NewUser("psid-1", now)
	require.NoError(t, users.Create(ctx, user))
	reading := domain.NewReading(user.ID, "will I travel", domain.Cards{}, "yes", now)
	require.NoError(t, readings.Create(ctx, reading))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	New("admin-secret", users, readings, logger.Nop()).RegisterRoutes(router)
	return router, user, reading
}

func get(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(adminTokenHeader, token)
	}
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetUser(t *testing.T) {
	router, user, reading := setup(t)

	rec := get(router, "/admin/users/psid-1", "admin-secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserSnapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, user.ID, resp.User.ID)
	require.NotNil(t, resp.LatestReading)
	assert.Equal(t, reading.ID, resp.LatestReading.ID)
}

func TestGetUser_NotFound(t *testing.T) {
	router, _, _ := setup(t)

	rec := get(router, "/admin/users/nobody", "admin-secret")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUser_Unauthorized(t *testing.T) {
	router, _, _ := setup(t)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/admin/users/psid-1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/admin/users/psid-1", "guess").Code)
}
