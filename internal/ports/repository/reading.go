package repository

import (
	"context"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/google/uuid"
)

// IReadingRepo интерфейс для работы с раскладами
type IReadingRepo interface {
	Create(ctx context.Context, reading *domain.Reading) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reading, error)
	// GetLatestByUser последние расклады пользователя, новые первыми
	GetLatestByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Reading, error)
	// Update compare-and-swap по reading.Version
	Update(ctx context.Context, reading *domain.Reading) error
}
