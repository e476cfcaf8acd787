package repository

import (
	"context"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// IPaymentRepo интерфейс для работы с платежами в БД
type IPaymentRepo interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error)
	SetInvoice(ctx context.Context, externalID string, providerID string, invoiceURL string) error
	// TransitionFromPending меняет статус только если платёж ещё PENDING.
	// false означает, что платёж уже обработан.
	TransitionFromPending(ctx context.Context, externalID string, status domain.PaymentStatus, paidAt *time.Time) (bool, error)
	// ExpirePendingBefore переводит зависшие PENDING в EXPIRED
	ExpirePendingBefore(ctx context.Context, before time.Time) (int64, error)
}
