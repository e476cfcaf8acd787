package repository

import (
	"context"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// ICardImageRepo кэш reusable-вложений карт
type ICardImageRepo interface {
	GetByFilename(ctx context.Context, filename string) (*domain.CardImage, error)
	// SaveAttachment сохраняет id вложения для ориентации, создаёт запись при отсутствии
	SaveAttachment(ctx context.Context, cardID, filename string, reversed bool, attachmentID string, now time.Time) error
	TouchLastUsed(ctx context.Context, filename string, now time.Time) error
}
