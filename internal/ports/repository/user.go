package repository

import (
	"context"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/google/uuid"
)

// IUserRepo интерфейс для работы с пользователями в БД
type IUserRepo interface {
	Create(ctx context.Context, user *domain.User) error
	GetByMessengerID(ctx context.Context, messengerID string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// Update compare-and-swap по user.Version, при конфликте domain.ErrStateConflict.
	// При успехе Version увеличивается.
	Update(ctx context.Context, user *domain.User) error
	// UpgradeTier повышает тариф вне конечного автомата, понижения не делает
	UpgradeTier(ctx context.Context, id uuid.UUID, tier domain.SubscriptionTier) (bool, error)
}
