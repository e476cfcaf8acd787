package payment

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gin-gonic/gin"
)

const callbackTokenHeader = "x-callback-token"

type Controller struct {
	PaymentService service.IPaymentService
	Log            *slog.Logger
}

func New(paymentService service.IPaymentService, log *slog.Logger) *Controller {
	return &Controller{
		PaymentService: paymentService,
		Log:            log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	payment := router.Group("/payment")
	{
		payment.POST("/checkout", c.checkout)
		payment.POST("/webhook", c.handleWebhook)
	}
}

// checkout выставляет инвойс на тариф
func (c *Controller) checkout(ctx *gin.Context) {
	var req CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.Log.Warn("failed to bind checkout request", "error", err)
		ctx.JSON(http.StatusBadRequest, CheckoutResponse{Error: "invalid request"})
		return
	}

	url, err := c.PaymentService.CreateCheckout(ctx.Request.Context(), req.MessengerID, domain.SubscriptionTier(req.Plan))
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, CheckoutResponse{Success: true, InvoiceURL: url})
	case domain.IsValidationError(err):
		ctx.JSON(http.StatusBadRequest, CheckoutResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		ctx.JSON(http.StatusNotFound, CheckoutResponse{Error: "user not found"})
	default:
		c.Log.Error("failed to create checkout", "error", err, "messenger_id", req.MessengerID, "plan", req.Plan)
		ctx.JSON(http.StatusInternalServerError, CheckoutResponse{Error: "failed to create invoice"})
	}
}

// handleWebhook колбэк провайдера. Ошибки обработки не превращаются в 5xx,
// иначе провайдер будет слать уведомление повторно.
func (c *Controller) handleWebhook(ctx *gin.Context) {
	if err := c.PaymentService.VerifyCallbackToken(ctx.GetHeader(callbackTokenHeader)); err != nil {
		c.Log.Warn("payment webhook rejected", "error", err, "remote_addr", ctx.ClientIP())
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var callback InvoiceCallback
	if err := ctx.ShouldBindJSON(&callback); err != nil {
		c.Log.Warn("failed to bind payment webhook", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := c.PaymentService.HandleWebhook(ctx.Request.Context(), callback.ToDomain()); err != nil {
		if !domain.IsBusinessError(err) {
			c.Log.Error("failed to handle payment webhook", "error", err, "external_id", callback.ExternalID)
		}
		ctx.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
