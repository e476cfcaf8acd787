package xendit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	paymentPort "github.com/gab-cat/tarot-bot/internal/ports/payment"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewProvider(&Config{
		SecretKey:  "xnd_test",
		BaseURL:    srv.URL,
		InvoiceTTL: 3600,
	}, logger.Nop())
}

func TestCreateInvoice(t *testing.T) {
	var got createInvoiceRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, invoicesPath, r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "xnd_test", user)
		assert.Empty(t, pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"inv-1","external_id":"pay-1","status":"PENDING","invoice_url":"https://checkout.xendit.co/web/inv-1"}`))
	})

	result, err := provider.CreateInvoice(context.Background(), paymentPort.CreateInvoiceRequest{
		ExternalID:  "pay-1",
		Amount:      149,
		Currency:    "PHP",
		Description: "Mystic plan",
	})
	require.NoError(t, err)
	assert.Equal(t, "inv-1", result.InvoiceID)
	assert.Equal(t, "https://checkout.xendit.co/web/inv-1", result.InvoiceURL)

	assert.Equal(t, "pay-1", got.ExternalID)
	assert.Equal(t, int64(149), got.Amount)
	assert.Equal(t, "PHP", got.Currency)
	assert.Equal(t, 3600, got.InvoiceDuration)
}

func TestCreateInvoice_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusBadRequest, `{"error_code":"API_VALIDATION_ERROR","message":"amount is required"}`},
		{"missing invoice url", http.StatusOK, `{"id":"inv-1","status":"PENDING"}`},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := provider.CreateInvoice(context.Background(), paymentPort.CreateInvoiceRequest{ExternalID: "pay-1", Amount: 149, Currency: "PHP"})
			assert.Error(t, err)
		})
	}
}
