package tarot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
)

// TimerRegistry планировщик, которому отдаются обработчики по назначению
type TimerRegistry interface {
	Register(purpose domain.TimerPurpose, handler service.TimerHandler)
}

// RegisterTimers подключает обработчики таймеров диалога
func (s *Service) RegisterTimers(reg TimerRegistry) {
	reg.Register(domain.TimerQuotaReset, s.timerHandler(IntentQuotaReset))
	reg.Register(domain.TimerFollowupExpiry, s.timerHandler(IntentFollowupExpired))
	reg.Register(domain.TimerReadingCooldown, s.timerHandler(IntentCooldownElapsed))
}

// timerHandler превращает сработавший таймер в событие автомата. Ошибки, которые
// повтор не исправит, оборачиваются в BusinessError.
func (s *Service) timerHandler(kind IntentKind) service.TimerHandler {
	return func(ctx context.Context, timer *domain.Timer) error {
		var payload domain.TimerPayload
		if err := json.Unmarshal(timer.Payload, &payload); err != nil {
			s.Log.Error("failed to decode timer payload", "error", err, "timer_id", timer.ID)
			return domain.WrapBusinessError(fmt.Errorf("failed to decode timer payload: %w", err))
		}

		user, err := s.UserRepo.GetByMessengerID(ctx, payload.MessengerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.WrapBusinessError(err)
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		reading, err := s.timerReading(ctx, user, payload)
		if err != nil {
			return err
		}

		err = s.apply(ctx, user, reading, Intent{Kind: kind, TimerHandle: timer.Handle()})
		if errors.Is(err, errClaimLost) {
			return fmt.Errorf("%w: %v", domain.ErrStateConflict, err)
		}
		return err
	}
}

func (s *Service) timerReading(ctx context.Context, user *domain.User, payload domain.TimerPayload) (*domain.Reading, error) {
	if payload.ReadingID == nil {
		return s.latestReading(ctx, user.ID)
	}

	reading, err := s.ReadingRepo.GetByID(ctx, *payload.ReadingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.WrapBusinessError(err)
		}
		return nil, fmt.Errorf("failed to load reading: %w", err)
	}
	if err := reading.OwnedBy(user.ID); err != nil {
		s.Log.Warn("timer reading is not owned by user", "reading_id", reading.ID, "user_id", user.ID)
		return nil, domain.WrapBusinessError(err)
	}
	return reading, nil
}
