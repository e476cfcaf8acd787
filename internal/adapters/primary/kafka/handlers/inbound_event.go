package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/domain"
	kafkaPorts "github.com/gab-cat/tarot-bot/internal/ports/kafka"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
)

// InboundEventHandler передаёт события из топика в конечный автомат
type InboundEventHandler struct {
	Events service.IEventHandler
	Log    *slog.Logger
}

// NewInboundEventHandler создаёт handler входящих событий
func NewInboundEventHandler(events service.IEventHandler, log *slog.Logger) kafkaPorts.MessageHandler {
	return &InboundEventHandler{
		Events: events,
		Log:    log,
	}
}

// HandleMessage декодирует событие. Битое сообщение не ретраится.
func (h *InboundEventHandler) HandleMessage(ctx context.Context, key string, value []byte) error {
	var event domain.InboundEvent
	if err := json.Unmarshal(value, &event); err != nil {
		h.Log.Warn("dropping malformed inbound event", "error", err, "key", key)
		return domain.WrapBusinessError(fmt.Errorf("failed to unmarshal inbound event: %w", err))
	}

	if event.SenderID == "" {
		event.SenderID = key
	}

	h.Log.Debug("processing inbound event",
		"sender_id", event.SenderID,
		"kind", event.Kind,
		"mid", event.MessageID,
	)

	if err := h.Events.HandleEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to handle inbound event: %w", err)
	}
	return nil
}
