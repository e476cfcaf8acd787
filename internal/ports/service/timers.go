package service

import (
	"context"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// TimerHandler обработчик сработавшего таймера
type TimerHandler func(ctx context.Context, timer *domain.Timer) error

// ITimerService отложенные вызовы с отменой по handle
type ITimerService interface {
	RunAt(ctx context.Context, at time.Time, purpose domain.TimerPurpose, payload domain.TimerPayload) (string, error)
	RunAfter(ctx context.Context, delay time.Duration, purpose domain.TimerPurpose, payload domain.TimerPayload) (string, error)
	// Cancel отменяет таймер, неизвестный или уже сработавший handle не ошибка
	Cancel(ctx context.Context, handle string) error
}
