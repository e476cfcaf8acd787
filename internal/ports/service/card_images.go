package service

import (
	"context"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// ICardImageService возвращает attachment id для картинок карт
type ICardImageService interface {
	AttachmentIDs(ctx context.Context, cards domain.Cards) ([]string, error)
}
