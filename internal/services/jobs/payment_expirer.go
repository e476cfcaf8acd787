package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gab-cat/tarot-bot/internal/ports/repository"
)

const paymentExpirerName = "payment-expirer"

// PaymentExpirer переводит неоплаченные инвойсы старше ttl в EXPIRED, каждые interval
type PaymentExpirer struct {
	payments repository.IPaymentRepo
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger
}

func NewPaymentExpirer(payments repository.IPaymentRepo, ttl, interval time.Duration, log *slog.Logger) *PaymentExpirer {
	return &PaymentExpirer{
		payments: payments,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

func (j *PaymentExpirer) Name() string {
	return paymentExpirerName
}

// NextRun ближайшая граница interval
func (j *PaymentExpirer) NextRun(now time.Time) time.Time {
	return now.Truncate(j.interval).Add(j.interval)
}

func (j *PaymentExpirer) Run(ctx context.Context) error {
	expired, err := j.payments.ExpirePendingBefore(ctx, j.now().Add(-j.ttl))
	if err != nil {
		return fmt.Errorf("failed to expire payments: %w", err)
	}
	if expired > 0 {
		j.log.Info("stale payments expired", "count", expired)
	}
	return nil
}
