package service

import (
	"context"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// IPaymentService оплата тарифов
type IPaymentService interface {
	ICheckout
	VerifyCallbackToken(token string) error
	HandleWebhook(ctx context.Context, webhook domain.PaymentWebhook) error
}
