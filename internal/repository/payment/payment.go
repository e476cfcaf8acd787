package paymentRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ports "github.com/gab-cat/tarot-bot/internal/ports/repository"

	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/persistence"
)

type paymentColumns struct {
	TableName  string
	ID         string
	UserID     string
	ExternalID string
	ProviderID string
	Plan       string
	Amount     string
	Currency   string
	Method     string
	Status     string
	InvoiceURL string
	Metadata   string
	CreatedAt  string
	PaidAt     string
	UpdatedAt  string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns paymentColumns
}

// New создаёт новый репозиторий для работы с платежами
func New(db persistence.Persistence, log *slog.Logger) ports.IPaymentRepo {
	cols := paymentColumns{
		TableName:  "payments",
		ID:         "id",
		UserID:     "user_id",
		ExternalID: "external_id",
		ProviderID: "provider_id",
		Plan:       "plan",
		Amount:     "amount",
		Currency:   "currency",
		Method:     "method",
		Status:     "status",
		InvoiceURL: "invoice_url",
		Metadata:   "metadata",
		CreatedAt:  "created_at",
		PaidAt:     "paid_at",
		UpdatedAt:  "updated_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (14 полей)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.ExternalID,
		r.columns.ProviderID,
		r.columns.Plan,
		r.columns.Amount,
		r.columns.Currency,
		r.columns.Method,
		r.columns.Status,
		r.columns.InvoiceURL,
		r.columns.Metadata,
		r.columns.CreatedAt,
		r.columns.PaidAt,
		r.columns.UpdatedAt,
	)
}

// Create создаёт новый платёж
func (r *Repository) Create(ctx context.Context, payment *domain.Payment) error {
	// Сериализуем metadata через Value() (реализует driver.Valuer)
	metadataValue, err := payment.Metadata.Value()
	if err != nil {
		r.Log.Error("failed to marshal payment metadata",
			"error", err,
			"payment_id", payment.ID,
		)
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.columns.TableName,
		r.allColumns(),
	)

	err = r.db.Exec(ctx, query,
		payment.ID,
		payment.UserID,
		payment.ExternalID,
		payment.ProviderID,
		string(payment.Plan),
		payment.Amount,
		payment.Currency,
		string(payment.Method),
		string(payment.Status),
		payment.InvoiceURL,
		metadataValue,
		payment.CreatedAt,
		payment.PaidAt,
		payment.UpdatedAt,
	)
	if err != nil {
		r.Log.Error("failed to create payment",
			"error", err,
			"payment_id", payment.ID,
			"user_id", payment.UserID,
		)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	r.Log.Debug("payment created successfully",
		"payment_id", payment.ID,
		"external_id", payment.ExternalID,
		"amount", payment.Amount,
	)
	return nil
}

// GetByExternalID получает платёж по нашему внешнему идентификатору
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	var payment domain.Payment

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ExternalID,
	)

	err := r.db.Get(ctx, &payment, query, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("payment not found", "external_id", externalID)
			return nil, fmt.Errorf("payment %s: %w", externalID, domain.ErrNotFound)
		}
		r.Log.Error("failed to get payment",
			"error", err,
			"external_id", externalID,
		)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

// SetInvoice сохраняет данные инвойса провайдера
func (r *Repository) SetInvoice(ctx context.Context, externalID string, providerID string, invoiceURL string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = NOW() WHERE %s = $1`,
		r.columns.TableName,
		r.columns.ProviderID,
		r.columns.InvoiceURL,
		r.columns.UpdatedAt,
		r.columns.ExternalID,
	)

	if err := r.db.Exec(ctx, query, externalID, providerID, invoiceURL); err != nil {
		r.Log.Error("failed to set payment invoice",
			"error", err,
			"external_id", externalID,
		)
		return fmt.Errorf("failed to set payment invoice: %w", err)
	}
	return nil
}

// TransitionFromPending условный UPDATE, повторный webhook ничего не меняет
func (r *Repository) TransitionFromPending(ctx context.Context, externalID string, status domain.PaymentStatus, paidAt *time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = NOW() WHERE %s = $1 AND %s = $4`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.PaidAt,
		r.columns.UpdatedAt,
		r.columns.ExternalID,
		r.columns.Status,
	)

	rowsAffected, err := r.db.ExecWithResult(ctx, query, externalID, string(status), paidAt, string(domain.PaymentStatusPending))
	if err != nil {
		r.Log.Error("failed to update payment status",
			"error", err,
			"external_id", externalID,
			"status", status,
		)
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}

	r.Log.Debug("payment status transition",
		"external_id", externalID,
		"status", status,
		"applied", rowsAffected > 0,
	)
	return rowsAffected > 0, nil
}

// ExpirePendingBefore переводит зависшие PENDING в EXPIRED
func (r *Repository) ExpirePendingBefore(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2 AND %s < $3`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.UpdatedAt,
		r.columns.Status,
		r.columns.CreatedAt,
	)

	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		string(domain.PaymentStatusExpired),
		string(domain.PaymentStatusPending),
		before,
	)
	if err != nil {
		r.Log.Error("failed to expire pending payments", "error", err, "before", before)
		return 0, fmt.Errorf("failed to expire pending payments: %w", err)
	}
	return rowsAffected, nil
}
