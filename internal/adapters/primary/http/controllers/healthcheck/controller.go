package healthcheckController

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const readyTimeout = 2 * time.Second

// Pinger зависимость, без которой сервис не готов принимать трафик
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthCheckController struct {
	checks map[string]Pinger
	log    *slog.Logger
}

// New checks может быть пустым, тогда /ready всегда отвечает ready (режим in-memory)
func New(checks map[string]Pinger, log *slog.Logger) *HealthCheckController {
	return &HealthCheckController{
		checks: checks,
		log:    log,
	}
}

func (c *HealthCheckController) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", c.health)
	r.GET("/ready", c.ready)
}

// health базовая проверка (всегда возвращает 200)
func (c *HealthCheckController) health(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":   "ok",
		"usecases": "tarot-bot",
	})
}

// ready проверка готовности всех зависимостей
func (c *HealthCheckController) ready(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), readyTimeout)
	defer cancel()

	for name, check := range c.checks {
		if err := check.PingContext(pingCtx); err != nil {
			c.log.Error("dependency not ready", "dependency", name, "error", err)
			ctx.JSON(503, gin.H{
				"status": "not ready",
				"error":  name + " unavailable",
			})
			return
		}
	}

	ctx.JSON(200, gin.H{
		"status": "ready",
	})
}
