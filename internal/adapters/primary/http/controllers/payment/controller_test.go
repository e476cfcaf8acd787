package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPaymentService struct {
	url         string
	checkoutErr error
	webhookErr  error
	webhooks    []domain.PaymentWebhook
}

func (m *mockPaymentService) CreateCheckout(_ context.Context, messengerID string, plan domain.SubscriptionTier) (string, error) {
	if m.checkoutErr != nil {
		return "", m.checkoutErr
	}
	return m.url + "?u=" + messengerID + "&plan=" + string(plan), nil
}

func (m *mockPaymentService) VerifyCallbackToken(token string) error {
	if token != "secret" {
		return domain.ErrPaymentWebhookUnauthorized
	}
	return nil
}

func (m *mockPaymentService) HandleWebhook(_ context.Context, webhook domain.PaymentWebhook) error {
	m.webhooks = append(m.webhooks, webhook)
	return m.webhookErr
}

func do(t *testing.T, svc *mockPaymentService, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	New(svc, logger.Nop()).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Callback-Token", token)
	}
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckout(t *testing.T) {
	svc := &mockPaymentService{url: "https://pay.example/inv"}

	rec := do(t, svc, "/payment/checkout", "", `{"messengerId":"psid-1","plan":"mystic"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"invoiceUrl":"https://pay.example/inv?u=psid-1&plan=mystic"}`, rec.Body.String())
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"missing fields", `{"plan":"mystic"}`, nil, http.StatusBadRequest},
		{"invalid plan", `{"messengerId":"u","plan":"gold"}`, &domain.ValidationError{Field: "plan", Reason: "unknown"}, http.StatusBadRequest},
		{"unknown user", `{"messengerId":"u","plan":"oracle"}`, domain.ErrNotFound, http.StatusNotFound},
		{"provider down", `{"messengerId":"u","plan":"oracle"}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, &mockPaymentService{checkoutErr: tt.err}, "/payment/checkout", "", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestWebhook_RejectsBadToken(t *testing.T) {
	svc := &mockPaymentService{}

	rec := do(t, svc, "/payment/webhook", "wrong", `{"external_id":"tarot-1","status":"PAID"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, svc, "/payment/webhook", "", `{"external_id":"tarot-1","status":"PAID"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, svc.webhooks)
}

func TestWebhook_Normalizes(t *testing.T) {
	svc := &mockPaymentService{}

	rec := do(t, svc, "/payment/webhook", "secret",
		`{"id":"inv-9","external_id":"tarot-1","status":"SETTLED","paid_at":"2025-10-15T10:00:00Z"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.webhooks, 1)
	got := svc.webhooks[0]
	assert.Equal(t, "tarot-1", got.ExternalID)
	assert.Equal(t, "inv-9", got.ProviderID)
	assert.Equal(t, domain.PaymentStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)))
}

func TestWebhook_ProcessingErrorIsNot5xx(t *testing.T) {
	svc := &mockPaymentService{webhookErr: errors.New("db down")}

	rec := do(t, svc, "/payment/webhook", "secret", `{"external_id":"tarot-1","status":"EXPIRED"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":false}`, rec.Body.String())
}
