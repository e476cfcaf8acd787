package cardImageRepo

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
)

type cardImageColumns struct {
	TableName            string
	ImageFilename        string
	CardID               string
	UprightAttachmentID  string
	ReversedAttachmentID string
	CreatedAt            string
	LastUsedAt           string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns cardImageColumns
}

// New создаёт репозиторий кэша вложений карт
func New(db persistence.Persistence, log *slog.Logger) ports.ICardImageRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: cardImageColumns{
			TableName:            "card_images",
			ImageFilename:        "image_filename",
			CardID:               "card_id",
			UprightAttachmentID:  "upright_attachment_id",
			ReversedAttachmentID: "reversed_attachment_id",
			CreatedAt:            "created_at",
			LastUsedAt:           "last_used_at",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s",
		r.columns.ImageFilename,
		r.columns.CardID,
		r.columns.UprightAttachmentID,
		r.columns.ReversedAttachmentID,
		r.columns.CreatedAt,
		r.columns.LastUsedAt)
}

func (r *Repository) GetByFilename(ctx context.Context, filename string) (*domain.CardImage, error) {
	var image domain.CardImage
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ImageFilename)
	if err := r.db.Get(ctx, &image, query, filename); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card image %s: %w", filename, domain.ErrNotFound)
		}
		r.Log.Error("failed to get card image", "error", err, "filename", filename)
		return nil, fmt.Errorf("failed to get card image: %w", err)
	}
	return &image, nil
}

// SaveAttachment upsert id вложения нужной ориентации
func (r *Repository) SaveAttachment(ctx context.Context, cardID, filename string, reversed bool, attachmentID string, now time.Time) error {
	column := r.columns.UprightAttachmentID
	if reversed {
		column = r.columns.ReversedAttachmentID
	}
	query := fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, %[3]s, %[4]s, %[5]s) VALUES ($1, $2, $3, $4)
		ON CONFLICT (%[2]s) DO UPDATE SET %[4]s = EXCLUDED.%[4]s`,
		r.columns.TableName,
		r.columns.ImageFilename,
		r.columns.CardID,
		column,
		r.columns.CreatedAt)
	if err := r.db.Exec(ctx, query, filename, cardID, attachmentID, now); err != nil {
		r.Log.Error("failed to save card attachment",
			"error", err,
			"filename", filename,
			"reversed", reversed)
		return fmt.Errorf("failed to save card attachment: %w", err)
	}
	return nil
}

func (r *Repository) TouchLastUsed(ctx context.Context, filename string, now time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		r.columns.TableName,
		r.columns.LastUsedAt,
		r.columns.ImageFilename)
	if err := r.db.Exec(ctx, query, filename, now); err != nil {
		return fmt.Errorf("failed to touch card image: %w", err)
	}
	return nil
}
