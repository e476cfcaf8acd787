package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/inmemory"
	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	paymentPort "github.com/gab-cat/tarot-bot/internal/ports/payment"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	requests []paymentPort.CreateInvoiceRequest
	err      error
}

func (m *mockProvider) CreateInvoice(_ context.Context, req paymentPort.CreateInvoiceRequest) (*paymentPort.CreateInvoiceResult, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &paymentPort.CreateInvoiceResult{
		InvoiceID:  "inv-" + req.ExternalID,
		InvoiceURL: "https://pay.example/" + req.ExternalID,
	}, nil
}

type mockAlerter struct {
	messages []string
}

func (m *mockAlerter) SendAlert(_ context.Context, message string) error {
	m.messages = append(m.messages, message)
	return nil
}

type fixture struct {
	svc      *Service
	payments *inmemory.PaymentRepo
	users    *inmemory.UserRepo
	provider *mockProvider
	outbox   *inmemory.Outbox
	alerter  *mockAlerter
	user     *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		payments: inmemory.NewPaymentRepo(),
		users:    inmemory.NewUserRepo(),
		provider: &mockProvider{},
		outbox:   inmemory.NewOutbox(logger.Nop()),
		alerter:  &mockAlerter{},
	}
	f.user = domain.NewUser("psid-1", time.Now())
	require.NoError(t, f.users.Create(context.Background(), f.user))

	cfg := Config{
		Currency:      "PHP",
		MysticAmount:  149,
		OracleAmount:  299,
		SuccessURL:    "https://bot.example/success",
		FailureURL:    "https://bot.example/fail",
		CallbackToken: "secret-token",
	}
	f.svc = New(f.payments, f.users, f.provider, f.outbox, f.alerter, cfg, nil, logger.Nop())
	return f
}

func (f *fixture) checkout(t *testing.T, plan domain.SubscriptionTier) *domain.Payment {
	t.Helper()
	url, err := f.svc.CreateCheckout(context.Background(), "psid-1", plan)
	require.NoError(t, err)
	require.Len(t, f.provider.requests, 1)

	externalID := f.provider.requests[0].ExternalID
	assert.Equal(t, "https://pay.example/"+externalID, url)

	p, err := f.payments.GetByExternalID(context.Background(), externalID)
	require.NoError(t, err)
	return p
}

func TestCreateCheckout(t *testing.T) {
	f := newFixture(t)

	p := f.checkout(t, domain.TierMystic)

	assert.Equal(t, domain.PaymentStatusPending, p.Status)
	assert.Equal(t, domain.TierMystic, p.Plan)
	assert.Equal(t, int64(149), p.Amount)
	assert.Equal(t, f.user.ID, p.UserID)
	require.NotNil(t, p.InvoiceURL)
	assert.Equal(t, "inv-"+p.ExternalID, *p.ProviderID)

	req := f.provider.requests[0]
	assert.Equal(t, "PHP", req.Currency)
	assert.Equal(t, "https://bot.example/success", req.SuccessURL)
	assert.Equal(t, "https://bot.example/fail", req.FailureURL)
}

func TestCreateCheckout_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateCheckout(context.Background(), "psid-1", domain.TierFree)
	assert.True(t, domain.IsValidationError(err))

	_, err = f.svc.CreateCheckout(context.Background(), "psid-unknown", domain.TierMystic)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, f.provider.requests)
}

func TestCreateCheckout_ProviderFailureMarksPaymentFailed(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("xendit down")

	_, err := f.svc.CreateCheckout(context.Background(), "psid-1", domain.TierOracle)
	require.Error(t, err)

	p, err := f.payments.GetByExternalID(context.Background(), f.provider.requests[0].ExternalID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, p.Status)
}

func TestHandleWebhook_PaidTwiceUpgradesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.checkout(t, domain.TierMystic)

	paidAt := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	webhook := domain.PaymentWebhook{ExternalID: p.ExternalID, Status: domain.PaymentStatusPaid, PaidAt: &paidAt}

	require.NoError(t, f.svc.HandleWebhook(ctx, webhook))
	u, err := f.users.GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierMystic, u.Tier)
	version := u.Version

	require.NoError(t, f.svc.HandleWebhook(ctx, webhook))
	u, err = f.users.GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, version, u.Version, "second delivery must not touch the user")

	stored, err := f.payments.GetByExternalID(ctx, p.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, paidAt.Equal(*stored.PaidAt))

	msgs := f.outbox.Messages("psid-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, texts.FormatPaymentConfirmed(domain.TierMystic), msgs[0].Text)
}

func TestHandleWebhook_ExpiredDoesNotUpgrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.checkout(t, domain.TierOracle)

	require.NoError(t, f.svc.HandleWebhook(ctx, domain.PaymentWebhook{ExternalID: p.ExternalID, Status: domain.PaymentStatusExpired}))
	require.NoError(t, f.svc.HandleWebhook(ctx, domain.PaymentWebhook{ExternalID: p.ExternalID, Status: domain.PaymentStatusPaid}))

	u, err := f.users.GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, u.Tier)
	assert.Empty(t, f.outbox.Messages("psid-1"))
}

func TestHandleWebhook_UnknownPayment(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleWebhook(context.Background(), domain.PaymentWebhook{ExternalID: "nope", Status: domain.PaymentStatusPaid})
	assert.True(t, domain.IsBusinessError(err))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandleWebhook_InvalidStatus(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleWebhook(context.Background(), domain.PaymentWebhook{ExternalID: "x", Status: "SETTLED"})
	assert.True(t, domain.IsValidationError(err))
}

func TestVerifyCallbackToken(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.svc.VerifyCallbackToken("secret-token"))
	assert.ErrorIs(t, f.svc.VerifyCallbackToken("wrong"), domain.ErrPaymentWebhookUnauthorized)
	assert.ErrorIs(t, f.svc.VerifyCallbackToken(""), domain.ErrPaymentWebhookUnauthorized)

	f.svc.cfg.CallbackToken = ""
	assert.ErrorIs(t, f.svc.VerifyCallbackToken(""), domain.ErrPaymentWebhookUnauthorized)
}
