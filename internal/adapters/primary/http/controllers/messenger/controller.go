package messenger

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gab-cat/tarot-bot/internal/services/ingress"
	"github.com/gin-gonic/gin"
)

const (
	eventReceived = "EVENT_RECEIVED"
	errorHandled  = "ERROR_HANDLED"
)

type Controller struct {
	VerifyToken string
	Dispatcher  service.IEventDispatcher
	Log         *slog.Logger
}

func New(verifyToken string, dispatcher service.IEventDispatcher, log *slog.Logger) *Controller {
	return &Controller{
		VerifyToken: verifyToken,
		Dispatcher:  dispatcher,
		Log:         log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.GET("/webhook", c.verify)
	router.POST("/webhook", c.handleWebhook)
}

// verify подтверждение подписки Messenger на вебхук
func (c *Controller) verify(ctx *gin.Context) {
	mode := ctx.Query("hub.mode")
	token := ctx.Query("hub.verify_token")
	challenge := ctx.Query("hub.challenge")

	if mode != "subscribe" || c.VerifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(c.VerifyToken)) != 1 {
		c.Log.Warn("webhook verification failed", "mode", mode)
		ctx.String(http.StatusForbidden, "Forbidden")
		return
	}

	c.Log.Info("webhook verified")
	ctx.String(http.StatusOK, challenge)
}

// handleWebhook всегда отвечает 200, иначе Messenger будет повторять доставку
func (c *Controller) handleWebhook(ctx *gin.Context) {
	var envelope domain.WebhookEnvelope
	if err := ctx.ShouldBindJSON(&envelope); err != nil {
		c.Log.Warn("failed to bind webhook request", "error", err)
		ctx.String(http.StatusOK, errorHandled)
		return
	}

	events := ingress.Parse(envelope)
	if len(events) == 0 {
		ctx.String(http.StatusOK, eventReceived)
		return
	}

	c.Log.Debug("received webhook events", "object", envelope.Object, "count", len(events))

	if err := c.Dispatcher.Dispatch(ctx.Request.Context(), events); err != nil {
		c.Log.Error("failed to dispatch webhook events", "error", err, "count", len(events))
		ctx.String(http.StatusOK, errorHandled)
		return
	}

	ctx.String(http.StatusOK, eventReceived)
}
