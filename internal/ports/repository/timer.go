package repository

import (
	"context"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/google/uuid"
)

// ITimerRepo хранилище отложенных вызовов
type ITimerRepo interface {
	Create(ctx context.Context, timer *domain.Timer) error
	// Cancel отменяет pending таймер, false если он уже сработал или отменён
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	// ClaimDue забирает созревшие pending таймеры, повторно их не отдаёт
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.Timer, error)
	MarkFired(ctx context.Context, id uuid.UUID) error
	// Reschedule возвращает таймер в pending после ошибки обработчика
	Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error
	NextRunAt(ctx context.Context) (*time.Time, error)
}
