package kafka

import (
	"context"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// IKafkaProducer интерфейс для отправки сообщений в Kafka
type IKafkaProducer interface {
	// PublishEvent отправляет входящее событие, ключ = sender id
	PublishEvent(ctx context.Context, event domain.InboundEvent) error
	// Send отправляет произвольное сообщение
	Send(ctx context.Context, key string, value []byte) error
	// Close закрывает producer
	Close() error
}
