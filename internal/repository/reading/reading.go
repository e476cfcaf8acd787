package readingRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	ports "github.com/gab-cat/tarot-bot/internal/ports/repository"

	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/persistence"
	"github.com/google/uuid"
)

type readingColumns struct {
	TableName         string
	ID                string
	UserID            string
	Question          string
	Cards             string
	Interpretation    string
	FollowState       string
	MaxFollowups      string
	FollowupsUsed     string
	History           string
	ExpiryTimerHandle string
	Version           string
	CreatedAt         string
	UpdatedAt         string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns readingColumns
}

// New создаёт новый репозиторий для работы с раскладами
func New(db persistence.Persistence, log *slog.Logger) ports.IReadingRepo {
	cols := readingColumns{
		TableName:         "readings",
		ID:                "id",
		UserID:            "user_id",
		Question:          "question",
		Cards:             "cards",
		Interpretation:    "interpretation",
		FollowState:       "follow_state",
		MaxFollowups:      "max_followups",
		FollowupsUsed:     "followups_used",
		History:           "history",
		ExpiryTimerHandle: "expiry_timer_handle",
		Version:           "version",
		CreatedAt:         "created_at",
		UpdatedAt:         "updated_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (13 колонок)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.Question,
		r.columns.Cards,
		r.columns.Interpretation,
		r.columns.FollowState,
		r.columns.MaxFollowups,
		r.columns.FollowupsUsed,
		r.columns.History,
		r.columns.ExpiryTimerHandle,
		r.columns.Version,
		r.columns.CreatedAt,
		r.columns.UpdatedAt)
}

// Create сохраняет новый расклад
func (r *Repository) Create(ctx context.Context, reading *domain.Reading) error {
	if len(reading.Cards) != len(domain.SpreadPositions) {
		return fmt.Errorf("reading must contain %d cards, got %d", len(domain.SpreadPositions), len(reading.Cards))
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.columns.TableName,
		r.allColumns())
	err := r.db.Exec(ctx, query,
		reading.ID,
		reading.UserID,
		reading.Question,
		reading.Cards,
		reading.Interpretation,
		reading.FollowState,
		reading.MaxFollowups,
		reading.FollowupsUsed,
		reading.History,
		reading.ExpiryTimerHandle,
		reading.Version,
		reading.CreatedAt,
		reading.UpdatedAt)
	if err != nil {
		r.Log.Error("failed to create reading",
			"error", err,
			"reading_id", reading.ID,
			"user_id", reading.UserID)
		return fmt.Errorf("failed to create reading: %w", err)
	}
	r.Log.Debug("reading created successfully", "reading_id", reading.ID, "user_id", reading.UserID)
	return nil
}

// GetByID получает расклад по ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reading, error) {
	var reading domain.Reading
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ID)
	err := r.db.Get(ctx, &reading, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("reading not found", "reading_id", id)
			return nil, fmt.Errorf("reading %s: %w", id, domain.ErrNotFound)
		}
		r.Log.Error("failed to get reading by id",
			"error", err,
			"reading_id", id)
		return nil, fmt.Errorf("failed to get reading by id: %w", err)
	}
	return &reading, nil
}

// GetLatestByUser последние расклады пользователя, новые первыми
func (r *Repository) GetLatestByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Reading, error) {
	var readings []*domain.Reading
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT $2`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID,
		r.columns.CreatedAt)
	if err := r.db.Select(ctx, &readings, query, userID, limit); err != nil {
		r.Log.Error("failed to get latest readings",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to get latest readings: %w", err)
	}
	return readings, nil
}

// Update compare-and-swap по version
func (r *Repository) Update(ctx context.Context, reading *domain.Reading) error {
	query := fmt.Sprintf(`UPDATE %s SET
		%s = $3, %s = $4, %s = $5, %s = $6,
		%s = $7, %s = $8, %s = $9,
		%s = %s + 1
		WHERE %s = $1 AND %s = $2`,
		r.columns.TableName,
		r.columns.Interpretation,
		r.columns.FollowState,
		r.columns.MaxFollowups,
		r.columns.FollowupsUsed,
		r.columns.History,
		r.columns.ExpiryTimerHandle,
		r.columns.UpdatedAt,
		r.columns.Version, r.columns.Version,
		r.columns.ID,
		r.columns.Version)
	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		reading.ID,
		reading.Version,
		reading.Interpretation,
		reading.FollowState,
		reading.MaxFollowups,
		reading.FollowupsUsed,
		reading.History,
		reading.ExpiryTimerHandle,
		reading.UpdatedAt)
	if err != nil {
		r.Log.Error("failed to update reading",
			"error", err,
			"reading_id", reading.ID)
		return fmt.Errorf("failed to update reading: %w", err)
	}
	if rowsAffected == 0 {
		r.Log.Debug("reading version conflict", "reading_id", reading.ID, "version", reading.Version)
		return fmt.Errorf("update reading %s at version %d: %w", reading.ID, reading.Version, domain.ErrStateConflict)
	}
	reading.Version++
	r.Log.Debug("reading updated successfully",
		"reading_id", reading.ID,
		"follow_state", reading.FollowState,
		"version", reading.Version)
	return nil
}
