package tarot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/metrics"
	"github.com/gab-cat/tarot-bot/internal/ports/cache"
	"github.com/gab-cat/tarot-bot/internal/ports/messenger"
	"github.com/gab-cat/tarot-bot/internal/ports/repository"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/google/uuid"
)

const (
	dedupKeyPrefix = "event:"
	// DefaultDedupTTL сколько помним обработанные message id
	DefaultDedupTTL = 24 * time.Hour
)

// errClaimLost первая запись проиграла CAS, событие уже обрабатывает другой вызов
var errClaimLost = errors.New("transition claim lost")

// Service исполняет решения конечного автомата
type Service struct {
	UserRepo    repository.IUserRepo
	ReadingRepo repository.IReadingRepo
	Drawer      service.ICardDrawer
	Interpreter service.IInterpreter
	Images      service.ICardImageService
	Messenger   messenger.IClient
	Timers      service.ITimerService
	Metrics     metrics.Recorder
	Location    *time.Location
	Log         *slog.Logger

	// Checkout опционален, без него апгрейд отвечает заглушкой
	Checkout service.ICheckout
	// Dedup опционален, без него повторы отсекает только CAS
	Dedup    cache.Cache
	DedupTTL time.Duration

	now func() time.Time
}

// New создаёт сервис диалогов
func New(
	userRepo repository.IUserRepo,
	readingRepo repository.IReadingRepo,
	drawer service.ICardDrawer,
	interpreter service.IInterpreter,
	images service.ICardImageService,
	messengerClient messenger.IClient,
	timers service.ITimerService,
	location *time.Location,
	rec metrics.Recorder,
	log *slog.Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		UserRepo:    userRepo,
		ReadingRepo: readingRepo,
		Drawer:      drawer,
		Interpreter: interpreter,
		Images:      images,
		Messenger:   messengerClient,
		Timers:      timers,
		Metrics:     rec,
		Location:    location,
		Log:         log,
		DedupTTL:    DefaultDedupTTL,
		now:         time.Now,
	}
}

// WithClock подменяет часы, используется в тестах
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// HandleEvent обрабатывает одно входящее событие. Ошибки переходов логируются
// и отвечаются пользователю, наружу уходят только ошибки загрузки состояния.
func (s *Service) HandleEvent(ctx context.Context, event domain.InboundEvent) error {
	s.Metrics.RecordEvent(string(event.Kind))

	if s.isDuplicate(ctx, event) {
		s.Metrics.RecordDuplicateEvent()
		s.Log.Info("duplicate event skipped", "sender_id", event.SenderID, "message_id", event.MessageID)
		return nil
	}

	user, err := s.loadOrCreateUser(ctx, event.SenderID)
	if err != nil {
		s.releaseEvent(ctx, event)
		return err
	}

	reading, err := s.latestReading(ctx, user.ID)
	if err != nil {
		s.releaseEvent(ctx, event)
		return err
	}

	err = s.apply(ctx, user, reading, Classify(event))
	if errors.Is(err, errClaimLost) {
		return nil
	}
	return err
}

// isDuplicate true если message id уже встречался. Ошибка кэша не блокирует обработку.
func (s *Service) isDuplicate(ctx context.Context, event domain.InboundEvent) bool {
	key := event.DedupKey()
	if s.Dedup == nil || key == "" {
		return false
	}
	fresh, err := s.Dedup.SetNX(ctx, dedupKeyPrefix+key, event.SenderID, s.DedupTTL)
	if err != nil {
		s.Log.Warn("failed to check event dedup key", "error", err, "message_id", key)
		return false
	}
	return !fresh
}

// releaseEvent снимает отметку о событии, чтобы повторная доставка обработала его заново
func (s *Service) releaseEvent(ctx context.Context, event domain.InboundEvent) {
	key := event.DedupKey()
	if s.Dedup == nil || key == "" {
		return
	}
	if err := s.Dedup.Delete(ctx, dedupKeyPrefix+key); err != nil {
		s.Log.Warn("failed to release event dedup key", "error", err, "message_id", key)
	}
}

func (s *Service) loadOrCreateUser(ctx context.Context, messengerID string) (*domain.User, error) {
	user, err := s.UserRepo.GetByMessengerID(ctx, messengerID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.Log.Error("failed to load user", "error", err, "messenger_id", messengerID)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user = domain.NewUser(messengerID, s.now())
	s.enrichProfile(ctx, user)

	if err := s.UserRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			// параллельное первое сообщение уже создало пользователя
			return s.UserRepo.GetByMessengerID(ctx, messengerID)
		}
		s.Log.Error("failed to create user", "error", err, "messenger_id", messengerID)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.Log.Info("user created", "user_id", user.ID, "messenger_id", messengerID)
	return user, nil
}

func (s *Service) enrichProfile(ctx context.Context, user *domain.User) {
	profile, err := s.Messenger.GetUserProfile(ctx, user.MessengerID)
	if err != nil {
		s.Log.Debug("user profile unavailable", "error", err, "messenger_id", user.MessengerID)
		return
	}
	if profile.FirstName != "" {
		user.FirstName = &profile.FirstName
	}
	if profile.LastName != "" {
		user.LastName = &profile.LastName
	}
}

func (s *Service) latestReading(ctx context.Context, userID uuid.UUID) (*domain.Reading, error) {
	readings, err := s.ReadingRepo.GetLatestByUser(ctx, userID, 1)
	if err != nil {
		s.Log.Error("failed to load latest reading", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to load latest reading: %w", err)
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return readings[0], nil
}

// apply принимает решение и исполняет его команды
func (s *Service) apply(ctx context.Context, user *domain.User, reading *domain.Reading, intent Intent) error {
	now := s.now()
	decision := Decide(Input{
		User:     *user,
		Reading:  reading,
		Intent:   intent,
		Now:      now,
		Location: s.Location,
	})

	if decision.QuotaExceeded != "" {
		s.Metrics.RecordQuotaExceeded(string(decision.QuotaExceeded))
	}

	run := &execution{
		svc:     s,
		user:    user,
		reading: reading,
		now:     now,
		log:     s.Log.With("user_id", user.ID, "intent", intent.Kind),
	}

	err := run.exec(ctx, decision.Commands)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errClaimLost):
		s.Metrics.RecordStateConflict()
		run.log.Info("concurrent transition won, skipping")
		return err
	}

	run.log.Error("transition failed", "error", err)
	if len(decision.OnFailure) > 0 {
		if ferr := run.exec(ctx, decision.OnFailure); ferr != nil {
			run.log.Error("failed to run failure commands", "error", ferr)
		}
	}
	return nil
}
