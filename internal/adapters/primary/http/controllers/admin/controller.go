package admin

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/repository"
	"github.com/gin-gonic/gin"
)

const adminTokenHeader = "X-Admin-Token"

type Controller struct {
	Token       string
	UserRepo    repository.IUserRepo
	ReadingRepo repository.IReadingRepo
	Log         *slog.Logger
}

func New(
	token string,
	userRepo repository.IUserRepo,
	readingRepo repository.IReadingRepo,
	log *slog.Logger,
) *Controller {
	return &Controller{
		Token:       token,
		UserRepo:    userRepo,
		ReadingRepo: readingRepo,
		Log:         log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	admin := router.Group("/admin", c.authorize)
	{
		admin.GET("/users/:messengerId", c.getUser)
	}
}

// UserSnapshotResponse состояние пользователя и его последний расклад
type UserSnapshotResponse struct {
	User          *domain.User    `json:"user"`
	LatestReading *domain.Reading `json:"latest_reading,omitempty"`
}

func (c *Controller) authorize(ctx *gin.Context) {
	token := ctx.GetHeader(adminTokenHeader)
	if c.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(c.Token)) != 1 {
		c.Log.Warn("admin request rejected", "path", ctx.FullPath(), "remote_addr", ctx.ClientIP())
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx.Next()
}

func (c *Controller) getUser(ctx *gin.Context) {
	messengerID := ctx.Param("messengerId")

	user, err := c.UserRepo.GetByMessengerID(ctx.Request.Context(), messengerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.Log.Error("failed to load user", "error", err, "messenger_id", messengerID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	resp := UserSnapshotResponse{User: user}

	readings, err := c.ReadingRepo.GetLatestByUser(ctx.Request.Context(), user.ID, 1)
	if err != nil {
		c.Log.Error("failed to load latest reading", "error", err, "user_id", user.ID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load readings"})
		return
	}
	if len(readings) > 0 {
		resp.LatestReading = readings[0]
	}

	ctx.JSON(http.StatusOK, resp)
}
