package timers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/metrics"
	"github.com/gab-cat/tarot-bot/internal/ports/repository"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/google/uuid"
)

const (
	DefaultPollInterval = time.Second
	DefaultBatchSize    = 50
	DefaultMaxAttempts  = 5
)

// Config параметры диспетчера таймеров
type Config struct {
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"50"`
	MaxAttempts  int           `envconfig:"MAX_ATTEMPTS" default:"5"`
}

// Service долговременные таймеры поверх ITimerRepo.
// Таймеры переживают рестарт: Start подбирает всё, что созрело, пока процесс лежал.
type Service struct {
	repo     repository.ITimerRepo
	metrics  metrics.Recorder
	log      *slog.Logger
	now      func() time.Time
	cfg      Config
	mu       sync.RWMutex
	handlers map[domain.TimerPurpose]service.TimerHandler
}

func New(repo repository.ITimerRepo, cfg Config, rec metrics.Recorder, log *slog.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		repo:     repo,
		metrics:  rec,
		log:      log,
		now:      time.Now,
		cfg:      cfg,
		handlers: make(map[domain.TimerPurpose]service.TimerHandler),
	}
}

// WithClock подменяет часы, для тестов
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register привязывает обработчик к назначению таймера
func (s *Service) Register(purpose domain.TimerPurpose, handler service.TimerHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[purpose] = handler
}

func (s *Service) RunAt(ctx context.Context, at time.Time, purpose domain.TimerPurpose, payload domain.TimerPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal timer payload: %w", err)
	}

	now := s.now()
	timer := &domain.Timer{
		ID:        uuid.New(),
		Purpose:   purpose,
		Payload:   raw,
		RunAt:     at,
		Status:    domain.TimerStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, timer); err != nil {
		s.log.Error("failed to create timer", "error", err, "purpose", purpose)
		return "", fmt.Errorf("failed to create timer: %w", err)
	}

	s.log.Debug("timer armed", "handle", timer.Handle(), "purpose", purpose, "run_at", at)
	return timer.Handle(), nil
}

func (s *Service) RunAfter(ctx context.Context, delay time.Duration, purpose domain.TimerPurpose, payload domain.TimerPayload) (string, error) {
	return s.RunAt(ctx, s.now().Add(delay), purpose, payload)
}

func (s *Service) Cancel(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	id, err := uuid.Parse(handle)
	if err != nil {
		s.log.Warn("invalid timer handle", "handle", handle)
		return nil
	}

	cancelled, err := s.repo.Cancel(ctx, id)
	if err != nil {
		s.log.Error("failed to cancel timer", "error", err, "handle", handle)
		return fmt.Errorf("failed to cancel timer: %w", err)
	}
	s.log.Debug("timer cancel", "handle", handle, "cancelled", cancelled)
	return nil
}

// Start опрашивает хранилище до отмены ctx
func (s *Service) Start(ctx context.Context) error {
	s.log.Info("timer dispatcher started", "poll_interval", s.cfg.PollInterval)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunDue(ctx, s.now()); err != nil && ctx.Err() == nil {
			s.log.Error("failed to run due timers", "error", err)
		}

		select {
		case <-ctx.Done():
			s.log.Info("timer dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunDue выполняет созревшие к now таймеры, возвращает число обработанных
func (s *Service) RunDue(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for {
		due, err := s.repo.ClaimDue(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to claim due timers: %w", err)
		}
		for _, timer := range due {
			s.fire(ctx, timer)
		}
		total += len(due)
		if len(due) < s.cfg.BatchSize {
			return total, nil
		}
	}
}

func (s *Service) fire(ctx context.Context, timer *domain.Timer) {
	s.mu.RLock()
	handler, ok := s.handlers[timer.Purpose]
	s.mu.RUnlock()

	log := s.log.With("handle", timer.Handle(), "purpose", timer.Purpose, "attempt", timer.Attempts)

	if !ok {
		log.Error("no handler for timer purpose")
		if err := s.repo.MarkFailed(ctx, timer.ID, "no handler registered"); err != nil {
			log.Error("failed to mark timer failed", "error", err)
		}
		s.metrics.RecordTimerFired(string(timer.Purpose), false)
		return
	}

	err := handler(ctx, timer)
	if err == nil || domain.IsBusinessError(err) {
		if err := s.repo.MarkFired(ctx, timer.ID); err != nil {
			log.Error("failed to mark timer fired", "error", err)
		}
		s.metrics.RecordTimerFired(string(timer.Purpose), true)
		return
	}

	s.metrics.RecordTimerFired(string(timer.Purpose), false)

	if ctx.Err() != nil {
		// процесс останавливается, таймер подберём после рестарта
		if rErr := s.repo.Reschedule(context.WithoutCancel(ctx), timer.ID, timer.RunAt, err.Error()); rErr != nil {
			log.Error("failed to reschedule timer", "error", rErr)
		}
		return
	}

	if timer.Attempts >= s.cfg.MaxAttempts {
		log.Error("timer handler exhausted attempts", "error", err)
		if mErr := s.repo.MarkFailed(ctx, timer.ID, err.Error()); mErr != nil {
			log.Error("failed to mark timer failed", "error", mErr)
		}
		return
	}

	retryAt := s.now().Add(backoff(timer.Attempts))
	log.Warn("timer handler failed, rescheduling", "error", err, "retry_at", retryAt)
	if rErr := s.repo.Reschedule(ctx, timer.ID, retryAt, err.Error()); rErr != nil {
		log.Error("failed to reschedule timer", "error", rErr)
	}
}

// backoff 2s, 4s, 8s... не больше минуты
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Second << attempt
	if d > time.Minute || d <= 0 {
		return time.Minute
	}
	return d
}
