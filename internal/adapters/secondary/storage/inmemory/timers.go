package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/google/uuid"
)

// TimerRepo in-memory реализация ITimerRepo
type TimerRepo struct {
	mu     sync.Mutex
	timers map[uuid.UUID]domain.Timer
}

func NewTimerRepo() *TimerRepo {
	return &TimerRepo{timers: make(map[uuid.UUID]domain.Timer)}
}

func (r *TimerRepo) Create(_ context.Context, timer *domain.Timer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers[timer.ID] = *timer
	return nil
}

func (r *TimerRepo) Cancel(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[id]
	if !ok || t.Status != domain.TimerStatusPending {
		return false, nil
	}
	t.Status = domain.TimerStatusCancelled
	r.timers[id] = t
	return true, nil
}

func (r *TimerRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]*domain.Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*domain.Timer
	for id, t := range r.timers {
		if t.Status != domain.TimerStatusPending || t.RunAt.After(now) {
			continue
		}
		t.Status = domain.TimerStatusFired
		t.Attempts++
		r.timers[id] = t
		claimed := t
		due = append(due, &claimed)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if limit > 0 && len(due) > limit {
		// лишние возвращаем в очередь
		for _, t := range due[limit:] {
			back := r.timers[t.ID]
			back.Status = domain.TimerStatusPending
			back.Attempts--
			r.timers[t.ID] = back
		}
		due = due[:limit]
	}
	return due, nil
}

func (r *TimerRepo) MarkFired(_ context.Context, id uuid.UUID) error {
	return r.setStatus(id, domain.TimerStatusFired, nil, nil)
}

func (r *TimerRepo) Reschedule(_ context.Context, id uuid.UUID, runAt time.Time, lastErr string) error {
	return r.setStatus(id, domain.TimerStatusPending, &runAt, &lastErr)
}

func (r *TimerRepo) MarkFailed(_ context.Context, id uuid.UUID, lastErr string) error {
	return r.setStatus(id, domain.TimerStatusFailed, nil, &lastErr)
}

func (r *TimerRepo) setStatus(id uuid.UUID, status domain.TimerStatus, runAt *time.Time, lastErr *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[id]
	if !ok {
		return fmt.Errorf("timer %s: %w", id, domain.ErrTimerNotFound)
	}
	t.Status = status
	if runAt != nil {
		t.RunAt = *runAt
	}
	t.LastError = lastErr
	r.timers[id] = t
	return nil
}

func (r *TimerRepo) NextRunAt(_ context.Context) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next *time.Time
	for _, t := range r.timers {
		if t.Status != domain.TimerStatusPending {
			continue
		}
		if next == nil || t.RunAt.Before(*next) {
			at := t.RunAt
			next = &at
		}
	}
	return next, nil
}

// Pending таймеры в статусе pending, для тестов
func (r *TimerRepo) Pending(purpose domain.TimerPurpose) []domain.Timer {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Timer
	for _, t := range r.timers {
		if t.Status == domain.TimerStatusPending && t.Purpose == purpose {
			result = append(result, t)
		}
	}
	return result
}
