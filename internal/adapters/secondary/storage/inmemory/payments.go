package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// PaymentRepo in-memory реализация IPaymentRepo
type PaymentRepo struct {
	mu         sync.Mutex
	byExternal map[string]domain.Payment
}

func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{byExternal: make(map[string]domain.Payment)}
}

func (r *PaymentRepo) Create(_ context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byExternal[payment.ExternalID]; ok {
		return fmt.Errorf("payment %s already exists: %w", payment.ExternalID, domain.ErrStateConflict)
	}
	r.byExternal[payment.ExternalID] = *payment
	return nil
}

func (r *PaymentRepo) GetByExternalID(_ context.Context, externalID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byExternal[externalID]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", externalID, domain.ErrNotFound)
	}
	return &p, nil
}

func (r *PaymentRepo) SetInvoice(_ context.Context, externalID string, providerID string, invoiceURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byExternal[externalID]
	if !ok {
		return fmt.Errorf("payment %s: %w", externalID, domain.ErrNotFound)
	}
	p.ProviderID = &providerID
	p.InvoiceURL = &invoiceURL
	r.byExternal[externalID] = p
	return nil
}

func (r *PaymentRepo) TransitionFromPending(_ context.Context, externalID string, status domain.PaymentStatus, paidAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byExternal[externalID]
	if !ok || p.Status != domain.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.PaidAt = paidAt
	r.byExternal[externalID] = p
	return true, nil
}

func (r *PaymentRepo) ExpirePendingBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, p := range r.byExternal {
		if p.Status == domain.PaymentStatusPending && p.CreatedAt.Before(before) {
			p.Status = domain.PaymentStatusExpired
			r.byExternal[id] = p
			n++
		}
	}
	return n, nil
}
