package payment

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/metrics"
	"github.com/gab-cat/tarot-bot/internal/ports/messenger"
	paymentPort "github.com/gab-cat/tarot-bot/internal/ports/payment"
	"github.com/gab-cat/tarot-bot/internal/ports/repository"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
	"github.com/google/uuid"
)

// Config тарифы и адреса возврата после оплаты
type Config struct {
	Currency      string        `envconfig:"CURRENCY" default:"PHP"`
	MysticAmount  int64         `envconfig:"MYSTIC_AMOUNT" default:"149"`
	OracleAmount  int64         `envconfig:"ORACLE_AMOUNT" default:"299"`
	SuccessURL    string        `envconfig:"SUCCESS_URL"`
	FailureURL    string        `envconfig:"FAILURE_URL"`
	PendingTTL    time.Duration `envconfig:"PENDING_TTL" default:"24h"`
	ExpireEvery   time.Duration `envconfig:"EXPIRE_EVERY" default:"15m"`
	CallbackToken string        `ignored:"true"` // берётся из конфига Xendit
}

func (c Config) amount(plan domain.SubscriptionTier) (int64, bool) {
	switch plan {
	case domain.TierMystic:
		return c.MysticAmount, c.MysticAmount > 0
	case domain.TierOracle:
		return c.OracleAmount, c.OracleAmount > 0
	}
	return 0, false
}

type Service struct {
	PaymentRepo     repository.IPaymentRepo
	UserRepo        repository.IUserRepo
	PaymentProvider paymentPort.IPaymentProvider // Xendit
	Messenger       messenger.IClient
	AlerterService  service.IAlerterService
	Metrics         metrics.Recorder
	Log             *slog.Logger

	cfg Config
	now func() time.Time
}

func New(
	paymentRepo repository.IPaymentRepo,
	userRepo repository.IUserRepo,
	paymentProvider paymentPort.IPaymentProvider,
	messengerClient messenger.IClient,
	alerterService service.IAlerterService,
	cfg Config,
	rec metrics.Recorder,
	log *slog.Logger,
) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		PaymentRepo:     paymentRepo,
		UserRepo:        userRepo,
		PaymentProvider: paymentProvider,
		Messenger:       messengerClient,
		AlerterService:  alerterService,
		Metrics:         rec,
		Log:             log,
		cfg:             cfg,
		now:             time.Now,
	}
}

// CreateCheckout создаёт платёж в PENDING и инвойс у провайдера, возвращает ссылку на оплату
func (s *Service) CreateCheckout(ctx context.Context, messengerID string, plan domain.SubscriptionTier) (string, error) {
	amount, ok := s.cfg.amount(plan)
	if !ok {
		return "", &domain.ValidationError{Field: "plan", Reason: fmt.Sprintf("unknown plan %q", plan)}
	}

	user, err := s.UserRepo.GetByMessengerID(ctx, messengerID)
	if err != nil {
		s.Log.Warn("checkout for unknown user", "error", err, "messenger_id", messengerID)
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if plan.Rank() <= user.Tier.Rank() {
		return "", &domain.ValidationError{Field: "plan", Reason: fmt.Sprintf("user already has %s", user.Tier)}
	}

	now := s.now()
	payment := &domain.Payment{
		ID:         uuid.New(),
		UserID:     user.ID,
		ExternalID: "tarot-" + uuid.NewString(),
		Plan:       plan,
		Amount:     amount,
		Currency:   s.cfg.Currency,
		Method:     domain.PaymentMethodXenditInvoice,
		Status:     domain.PaymentStatusPending,
		Metadata:   domain.PaymentMetadata{"messenger_id": messengerID},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		s.Log.Error("failed to create payment", "error", err, "user_id", user.ID)
		return "", fmt.Errorf("failed to create payment: %w", err)
	}

	invoice, err := s.PaymentProvider.CreateInvoice(ctx, paymentPort.CreateInvoiceRequest{
		ExternalID:  payment.ExternalID,
		Amount:      amount,
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("Tarot %s plan", texts.TierTitle(plan)),
		SuccessURL:  s.cfg.SuccessURL,
		FailureURL:  s.cfg.FailureURL,
	})
	if err != nil {
		s.Log.Error("failed to create invoice", "error", err, "external_id", payment.ExternalID)
		if _, terr := s.PaymentRepo.TransitionFromPending(ctx, payment.ExternalID, domain.PaymentStatusFailed, nil); terr != nil {
			s.Log.Warn("failed to mark payment failed", "error", terr, "external_id", payment.ExternalID)
		}
		s.Metrics.RecordPayment(string(domain.PaymentStatusFailed))
		return "", fmt.Errorf("failed to create invoice: %w", err)
	}

	if err := s.PaymentRepo.SetInvoice(ctx, payment.ExternalID, invoice.InvoiceID, invoice.InvoiceURL); err != nil {
		s.Log.Error("failed to save invoice", "error", err, "external_id", payment.ExternalID)
		return "", fmt.Errorf("failed to save invoice: %w", err)
	}

	s.Metrics.RecordPayment(string(domain.PaymentStatusPending))
	s.Log.Info("checkout created",
		"external_id", payment.ExternalID,
		"user_id", user.ID,
		"plan", plan,
		"amount", amount,
	)
	return invoice.InvoiceURL, nil
}

// VerifyCallbackToken сверяет x-callback-token вебхука
func (s *Service) VerifyCallbackToken(token string) error {
	expected := s.cfg.CallbackToken
	if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return domain.ErrPaymentWebhookUnauthorized
	}
	return nil
}

// HandleWebhook применяет статус от провайдера. Статус меняется только из PENDING,
// поэтому повторная доставка ничего не делает.
func (s *Service) HandleWebhook(ctx context.Context, webhook domain.PaymentWebhook) error {
	if !webhook.Status.IsValid() {
		return &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", webhook.Status)}
	}
	if webhook.Status == domain.PaymentStatusPending {
		return nil
	}

	paidAt := webhook.PaidAt
	if webhook.Status == domain.PaymentStatusPaid && paidAt == nil {
		now := s.now()
		paidAt = &now
	}

	applied, err := s.PaymentRepo.TransitionFromPending(ctx, webhook.ExternalID, webhook.Status, paidAt)
	if err != nil {
		s.Log.Error("failed to update payment status", "error", err, "external_id", webhook.ExternalID)
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	payment, err := s.PaymentRepo.GetByExternalID(ctx, webhook.ExternalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Log.Warn("webhook for unknown payment", "external_id", webhook.ExternalID)
			return domain.WrapBusinessError(err)
		}
		return fmt.Errorf("failed to get payment: %w", err)
	}

	if !applied {
		s.Log.Info("payment already processed",
			"external_id", webhook.ExternalID,
			"status", payment.Status,
			"webhook_status", webhook.Status,
		)
		return nil
	}

	s.Metrics.RecordPayment(string(webhook.Status))
	if webhook.Status != domain.PaymentStatusPaid {
		s.Log.Info("payment closed without upgrade", "external_id", webhook.ExternalID, "status", webhook.Status)
		return nil
	}

	return s.grantPlan(ctx, payment)
}

// grantPlan повышает тариф. Деньги уже списаны, поэтому ошибка уходит в алерт.
func (s *Service) grantPlan(ctx context.Context, payment *domain.Payment) error {
	upgraded, err := s.UserRepo.UpgradeTier(ctx, payment.UserID, payment.Plan)
	if err != nil {
		s.Log.Error("failed to upgrade tier after payment",
			"error", err,
			"external_id", payment.ExternalID,
			"user_id", payment.UserID,
			"plan", payment.Plan,
		)
		s.sendAlert(ctx, fmt.Sprintf("⚠️ *Payment PAID, tier upgrade failed*\n\n*External ID:* %s\n*User ID:* %s\n*Plan:* %s\n*Error:* %s",
			payment.ExternalID, payment.UserID, payment.Plan, err.Error()))
		return domain.WrapBusinessError(fmt.Errorf("failed to upgrade tier: %w", err))
	}

	user, err := s.UserRepo.GetByID(ctx, payment.UserID)
	if err != nil {
		s.Log.Warn("failed to load user for payment notification", "error", err, "user_id", payment.UserID)
		return nil
	}

	if err := s.Messenger.SendText(ctx, user.MessengerID, texts.FormatPaymentConfirmed(user.Tier), texts.MainMenu()); err != nil {
		s.Log.Warn("failed to send payment confirmation",
			"error", err,
			"external_id", payment.ExternalID,
			"messenger_id", user.MessengerID,
		)
	}

	s.Log.Info("payment processed",
		"external_id", payment.ExternalID,
		"user_id", payment.UserID,
		"plan", payment.Plan,
		"upgraded", upgraded,
	)
	return nil
}

func (s *Service) sendAlert(ctx context.Context, message string) {
	if s.AlerterService == nil {
		return
	}
	if err := s.AlerterService.SendAlert(ctx, message); err != nil {
		s.Log.Warn("failed to send alert (non-critical)", "error", err)
	}
}
