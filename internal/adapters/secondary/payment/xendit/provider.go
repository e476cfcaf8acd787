package xendit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	paymentPort "github.com/gab-cat/tarot-bot/internal/ports/payment"
)

const invoicesPath = "/v2/invoices"

// Provider реализует IPaymentProvider через Xendit Invoice API
type Provider struct {
	cfg        *Config
	httpClient *http.Client
	log        *slog.Logger
}

// NewProvider создаёт провайдера Xendit
func NewProvider(cfg *Config, log *slog.Logger) *Provider {
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

type createInvoiceRequest struct {
	ExternalID         string `json:"external_id"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
	Description        string `json:"description,omitempty"`
	InvoiceDuration    int    `json:"invoice_duration,omitempty"`
	SuccessRedirectURL string `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string `json:"failure_redirect_url,omitempty"`
}

type invoiceResponse struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoice_url"`
	ErrorCode  string `json:"error_code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// CreateInvoice создаёт инвойс и возвращает ссылку на оплату
func (p *Provider) CreateInvoice(ctx context.Context, req paymentPort.CreateInvoiceRequest) (*paymentPort.CreateInvoiceResult, error) {
	jsonData, err := json.Marshal(createInvoiceRequest{
		ExternalID:         req.ExternalID,
		Amount:             req.Amount,
		Currency:           req.Currency,
		Description:        req.Description,
		InvoiceDuration:    p.cfg.InvoiceTTL,
		SuccessRedirectURL: req.SuccessURL,
		FailureRedirectURL: req.FailureURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice request: %w", err)
	}

	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + invoicesPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(p.cfg.SecretKey, "")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.log.Debug("xendit request failed", "error", err, "external_id", req.ExternalID)
		return nil, fmt.Errorf("xendit request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read xendit response: %w", err)
	}

	var invoice invoiceResponse
	if err := json.Unmarshal(body, &invoice); err != nil {
		return nil, fmt.Errorf("failed to unmarshal xendit response [status=%d]: %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || invoice.InvoiceURL == "" {
		p.log.Debug("xendit returned error",
			"status_code", resp.StatusCode,
			"error_code", invoice.ErrorCode,
			"message", invoice.Message,
			"external_id", req.ExternalID,
		)
		return nil, fmt.Errorf("xendit error [status=%d, code=%s]: %s", resp.StatusCode, invoice.ErrorCode, invoice.Message)
	}

	p.log.Debug("xendit invoice created",
		"external_id", req.ExternalID,
		"invoice_id", invoice.ID,
	)

	return &paymentPort.CreateInvoiceResult{
		InvoiceID:  invoice.ID,
		InvoiceURL: invoice.InvoiceURL,
	}, nil
}
