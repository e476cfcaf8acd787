package userRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ports "github.com/gab-cat/tarot-bot/internal/ports/repository"

	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/persistence"
	"github.com/google/uuid"
)

type userColumns struct {
	TableName                 string
	ID                        string
	MessengerID               string
	FirstName                 string
	LastName                  string
	Tier                      string
	Birthdate                 string
	LastReadingAt             string
	ReadingsToday             string
	TopState                  string
	PendingNotificationHandle string
	Version                   string
	CreatedAt                 string
	UpdatedAt                 string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns userColumns
}

// New создаёт новый репозиторий для работы с пользователями
func New(db persistence.Persistence, log *slog.Logger) ports.IUserRepo {
	cols := userColumns{
		TableName:                 "users",
		ID:                        "id",
		MessengerID:               "messenger_id",
		FirstName:                 "first_name",
		LastName:                  "last_name",
		Tier:                      "tier",
		Birthdate:                 "birthdate",
		LastReadingAt:             "last_reading_at",
		ReadingsToday:             "readings_today",
		TopState:                  "top_state",
		PendingNotificationHandle: "pending_notification_handle",
		Version:                   "version",
		CreatedAt:                 "created_at",
		UpdatedAt:                 "updated_at",
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
		r.columns.MessengerID,
		r.columns.FirstName,
		r.columns.LastName,
		r.columns.Tier,
		r.columns.Birthdate,
		r.columns.LastReadingAt,
		r.columns.ReadingsToday,
		r.columns.TopState,
		r.columns.PendingNotificationHandle,
		r.columns.Version,
		r.columns.CreatedAt,
		r.columns.UpdatedAt)
}

// Create создаёт нового пользователя. Повторная вставка того же messenger_id
// отдаёт domain.ErrStateConflict, вызывающий перечитывает запись.
func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (%s) DO NOTHING`,
		r.columns.TableName,
		r.allColumns(),
		r.columns.MessengerID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		user.ID,
		user.MessengerID,
		user.FirstName,
		user.LastName,
		user.Tier,
		user.Birthdate,
		user.LastReadingAt,
		user.ReadingsToday,
		user.TopState,
		user.PendingNotificationHandle,
		user.Version,
		user.CreatedAt,
		user.UpdatedAt)
	if err != nil {
		r.Log.Error("failed to create user",
			"error", err,
			"messenger_id", user.MessengerID,
			"user_id", user.ID)
		return fmt.Errorf("failed to create user: %w", err)
	}
	if rowsAffected == 0 {
		r.Log.Debug("user already exists", "messenger_id", user.MessengerID)
		return fmt.Errorf("user %s already exists: %w", user.MessengerID, domain.ErrStateConflict)
	}
	r.Log.Debug("user created successfully",
		"id", user.ID,
		"messenger_id", user.MessengerID)
	return nil
}

// GetByMessengerID получает пользователя по PSID
func (r *Repository) GetByMessengerID(ctx context.Context, messengerID string) (*domain.User, error) {
	var user domain.User
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.MessengerID)
	err := r.db.Get(ctx, &user, query, messengerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("user not found", "messenger_id", messengerID)
			return nil, fmt.Errorf("user %s: %w", messengerID, domain.ErrNotFound)
		}
		r.Log.Error("failed to get user by messenger id",
			"error", err,
			"messenger_id", messengerID)
		return nil, fmt.Errorf("failed to get user by messenger id: %w", err)
	}
	return &user, nil
}

// GetByID получает пользователя по ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ID)
	err := r.db.Get(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("user not found", "user_id", id)
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		r.Log.Error("failed to get user by id",
			"error", err,
			"user_id", id)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Update обновляет пользователя, если version не изменилась с момента чтения
func (r *Repository) Update(ctx context.Context, user *domain.User) error {
	query := fmt.Sprintf(`UPDATE %s SET
		%s = $3, %s = $4, %s = $5, %s = $6, %s = $7,
		%s = $8, %s = $9, %s = $10, %s = $11,
		%s = %s + 1
		WHERE %s = $1 AND %s = $2`,
		r.columns.TableName,
		r.columns.FirstName,
		r.columns.LastName,
		r.columns.Tier,
		r.columns.Birthdate,
		r.columns.LastReadingAt,
		r.columns.ReadingsToday,
		r.columns.TopState,
		r.columns.PendingNotificationHandle,
		r.columns.UpdatedAt,
		r.columns.Version, r.columns.Version,
		r.columns.ID,
		r.columns.Version)
	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		user.ID,
		user.Version,
		user.FirstName,
		user.LastName,
		user.Tier,
		user.Birthdate,
		user.LastReadingAt,
		user.ReadingsToday,
		user.TopState,
		user.PendingNotificationHandle,
		user.UpdatedAt)
	if err != nil {
		r.Log.Error("failed to update user",
			"error", err,
			"user_id", user.ID)
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rowsAffected == 0 {
		r.Log.Debug("user version conflict", "user_id", user.ID, "version", user.Version)
		return fmt.Errorf("update user %s at version %d: %w", user.ID, user.Version, domain.ErrStateConflict)
	}
	user.Version++
	r.Log.Debug("user updated successfully", "user_id", user.ID, "version", user.Version)
	return nil
}

// UpgradeTier повышает тариф. Версия тоже растёт, чтобы параллельный
// переход конечного автомата не затёр новый тариф.
func (r *Repository) UpgradeTier(ctx context.Context, id uuid.UUID, tier domain.SubscriptionTier) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = %s + 1, %s = $3
		WHERE %s = $1 AND (CASE %s WHEN 'oracle' THEN 2 WHEN 'mystic' THEN 1 ELSE 0 END) < $4`,
		r.columns.TableName,
		r.columns.Tier,
		r.columns.Version, r.columns.Version,
		r.columns.UpdatedAt,
		r.columns.ID,
		r.columns.Tier)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, id, tier, time.Now().UTC(), tier.Rank())
	if err != nil {
		r.Log.Error("failed to upgrade user tier",
			"error", err,
			"user_id", id,
			"tier", tier)
		return false, fmt.Errorf("failed to upgrade user tier: %w", err)
	}
	r.Log.Debug("user tier upgrade", "user_id", id, "tier", tier, "applied", rowsAffected > 0)
	return rowsAffected > 0, nil
}
