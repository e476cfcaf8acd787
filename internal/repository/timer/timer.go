package timerRepo

import (
	"context"
	"fmt"
	"time"

	ports "github.com/gab-cat/tarot-bot/internal/ports/repository"

	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/persistence"
	"github.com/google/uuid"
)

type timerColumns struct {
	TableName string
	ID        string
	Purpose   string
	Payload   string
	RunAt     string
	Status    string
	Attempts  string
	LastError string
	CreatedAt string
	UpdatedAt string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns timerColumns
}

// New создаёт репозиторий таймеров
func New(db persistence.Persistence, log *slog.Logger) ports.ITimerRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: timerColumns{
			TableName: "timers",
			ID:        "id",
			Purpose:   "purpose",
			Payload:   "payload",
			RunAt:     "run_at",
			Status:    "status",
			Attempts:  "attempts",
			LastError: "last_error",
			CreatedAt: "created_at",
			UpdatedAt: "updated_at",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.Purpose,
		r.columns.Payload,
		r.columns.RunAt,
		r.columns.Status,
		r.columns.Attempts,
		r.columns.LastError,
		r.columns.CreatedAt,
		r.columns.UpdatedAt)
}

func (r *Repository) Create(ctx context.Context, timer *domain.Timer) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.columns.TableName,
		r.allColumns())
	err := r.db.Exec(ctx, query,
		timer.ID,
		timer.Purpose,
		[]byte(timer.Payload),
		timer.RunAt,
		timer.Status,
		timer.Attempts,
		timer.LastError,
		timer.CreatedAt,
		timer.UpdatedAt)
	if err != nil {
		r.Log.Error("failed to create timer", "error", err, "timer_id", timer.ID, "purpose", timer.Purpose)
		return fmt.Errorf("failed to create timer: %w", err)
	}
	return nil
}

func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1 AND %s = $3`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.UpdatedAt,
		r.columns.ID,
		r.columns.Status)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, id, domain.TimerStatusCancelled, domain.TimerStatusPending)
	if err != nil {
		r.Log.Error("failed to cancel timer", "error", err, "timer_id", id)
		return false, fmt.Errorf("failed to cancel timer: %w", err)
	}
	return rowsAffected > 0, nil
}

// ClaimDue переводит созревшие таймеры в fired одним запросом.
// SKIP LOCKED позволяет нескольким инстансам делить очередь.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.Timer, error) {
	query := fmt.Sprintf(`UPDATE %[1]s SET %[2]s = $3, %[3]s = %[3]s + 1, %[4]s = NOW()
		WHERE %[5]s IN (
			SELECT %[5]s FROM %[1]s
			WHERE %[2]s = $4 AND %[6]s <= $1
			ORDER BY %[6]s
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %[7]s`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.Attempts,
		r.columns.UpdatedAt,
		r.columns.ID,
		r.columns.RunAt,
		r.allColumns())

	var timers []*domain.Timer
	if err := r.db.Select(ctx, &timers, query, now, limit, domain.TimerStatusFired, domain.TimerStatusPending); err != nil {
		r.Log.Error("failed to claim due timers", "error", err)
		return nil, fmt.Errorf("failed to claim due timers: %w", err)
	}
	return timers, nil
}

// MarkFired таймер уже в fired после ClaimDue, здесь только фиксируем время
func (r *Repository) MarkFired(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NULL, %s = NOW() WHERE %s = $1`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.LastError,
		r.columns.UpdatedAt,
		r.columns.ID)
	if err := r.db.Exec(ctx, query, id, domain.TimerStatusFired); err != nil {
		return fmt.Errorf("failed to mark timer fired: %w", err)
	}
	return nil
}

func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastErr string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = NOW() WHERE %s = $1`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.RunAt,
		r.columns.LastError,
		r.columns.UpdatedAt,
		r.columns.ID)
	if err := r.db.Exec(ctx, query, id, domain.TimerStatusPending, runAt, lastErr); err != nil {
		return fmt.Errorf("failed to reschedule timer: %w", err)
	}
	return nil
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = NOW() WHERE %s = $1`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.LastError,
		r.columns.UpdatedAt,
		r.columns.ID)
	if err := r.db.Exec(ctx, query, id, domain.TimerStatusFailed, lastErr); err != nil {
		return fmt.Errorf("failed to mark timer failed: %w", err)
	}
	return nil
}

func (r *Repository) NextRunAt(ctx context.Context) (*time.Time, error) {
	query := fmt.Sprintf(`SELECT MIN(%s) FROM %s WHERE %s = $1`,
		r.columns.RunAt,
		r.columns.TableName,
		r.columns.Status)
	var next *time.Time
	if err := r.db.Get(ctx, &next, query, domain.TimerStatusPending); err != nil {
		return nil, fmt.Errorf("failed to get next timer: %w", err)
	}
	return next, nil
}
