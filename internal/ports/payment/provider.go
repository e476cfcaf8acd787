package payment

import (
	"context"
)

// IPaymentProvider интерфейс для платёжного провайдера.
// Use case зависит только от этого интерфейса, не зная деталей реализации
type IPaymentProvider interface {
	// CreateInvoice создаёт инвойс и возвращает ссылку на оплату
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResult, error)
}

// CreateInvoiceRequest запрос на создание invoice
type CreateInvoiceRequest struct {
	ExternalID  string // наш идентификатор платежа, вернётся в webhook
	Amount      int64
	Currency    string
	Description string
	SuccessURL  string
	FailureURL  string
}

// CreateInvoiceResult результат создания invoice
type CreateInvoiceResult struct {
	InvoiceID  string // ID инвойса у провайдера
	InvoiceURL string
}
