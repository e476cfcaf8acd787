package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod способ оплаты
type PaymentMethod string

const (
	PaymentMethodXenditInvoice PaymentMethod = "xendit_invoice"
)

// PaymentStatus статус платежа, значения совпадают со статусами провайдера
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING" // инвойс выставлен, ждём оплату
	PaymentStatusPaid    PaymentStatus = "PAID"    // оплачен
	PaymentStatusExpired PaymentStatus = "EXPIRED" // инвойс просрочен
	PaymentStatusFailed  PaymentStatus = "FAILED"  // ошибка оплаты
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusExpired, PaymentStatusFailed:
		return true
	}
	return false
}

// PaymentMetadata метаданные платежа (JSONB) с поддержкой sql.Scanner
type PaymentMetadata map[string]interface{}

// Scan реализует sql.Scanner для сканирования JSONB из БД
func (m *PaymentMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(PaymentMetadata)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = make(PaymentMetadata)
		return nil
	}

	if len(bytes) == 0 {
		*m = make(PaymentMetadata)
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует driver.Valuer для сохранения в БД
func (m PaymentMetadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Payment платёж за тариф
type Payment struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	UserID     uuid.UUID        `json:"user_id" db:"user_id"`
	ExternalID string           `json:"external_id" db:"external_id"` // наш id в системе провайдера
	ProviderID *string          `json:"provider_id,omitempty" db:"provider_id"`
	Plan       SubscriptionTier `json:"plan" db:"plan"`
	Amount     int64            `json:"amount" db:"amount"`
	Currency   string           `json:"currency" db:"currency"`
	Method     PaymentMethod    `json:"method" db:"method"`
	Status     PaymentStatus    `json:"status" db:"status"`
	InvoiceURL *string          `json:"invoice_url,omitempty" db:"invoice_url"`
	Metadata   PaymentMetadata  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	PaidAt     *time.Time       `json:"paid_at,omitempty" db:"paid_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// PaymentWebhook нормализованное уведомление провайдера о статусе
type PaymentWebhook struct {
	ExternalID string
	ProviderID string
	Status     PaymentStatus
	PaidAt     *time.Time
}
