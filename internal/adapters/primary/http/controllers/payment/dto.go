package payment

import (
	"strings"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// CheckoutRequest запрос ссылки на оплату
type CheckoutRequest struct {
	MessengerID string `json:"messengerId" binding:"required"`
	Plan        string `json:"plan" binding:"required"`
}

// CheckoutResponse ответ со ссылкой на инвойс
type CheckoutResponse struct {
	Success    bool   `json:"success"`
	InvoiceURL string `json:"invoiceUrl,omitempty"`
	Error      string `json:"error,omitempty"`
}

// InvoiceCallback тело колбэка Xendit по инвойсу
type InvoiceCallback struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"external_id" binding:"required"`
	Status     string     `json:"status" binding:"required"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// ToDomain SETTLED у Xendit означает поступившие деньги, для нас это тот же PAID
func (c InvoiceCallback) ToDomain() domain.PaymentWebhook {
	status := domain.PaymentStatus(strings.ToUpper(c.Status))
	if status == "SETTLED" {
		status = domain.PaymentStatusPaid
	}
	return domain.PaymentWebhook{
		ExternalID: c.ExternalID,
		ProviderID: c.ID,
		Status:     status,
		PaidAt:     c.PaidAt,
	}
}
