package service

import (
	"context"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// IEventHandler обработка нормализованного входящего события
type IEventHandler interface {
	HandleEvent(ctx context.Context, event domain.InboundEvent) error
}

// IEventDispatcher доставка событий до обработчика с сериализацией по пользователю
type IEventDispatcher interface {
	Dispatch(ctx context.Context, events []domain.InboundEvent) error
}

// ICheckout создание ссылки на оплату
type ICheckout interface {
	CreateCheckout(ctx context.Context, messengerID string, plan domain.SubscriptionTier) (string, error)
}
