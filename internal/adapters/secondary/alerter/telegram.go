package alerter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/telegram"
)

// Client клиент для отправки алертов оператору через Telegram
type Client struct {
	telegramClient  *telegram.Client
	chatID          int64
	messageThreadID *int64
	log             *slog.Logger
}

// NewClient создаёт новый клиент для отправки алертов, nil конфиг даёт nil клиент
func NewClient(cfg *Config, log *slog.Logger) *Client {
	if cfg == nil || cfg.BotToken == "" {
		return nil
	}
	return newClient(telegram.NewClient(cfg.BotToken, log), cfg, log)
}

func newClient(tg *telegram.Client, cfg *Config, log *slog.Logger) *Client {
	return &Client{
		telegramClient:  tg,
		chatID:          cfg.ChatID,
		messageThreadID: cfg.MessageThreadID,
		log:             log,
	}
}

// SendAlert отправляет алерт в Telegram группу (или топик форума)
func (c *Client) SendAlert(ctx context.Context, message string) error {
	if c == nil || c.telegramClient == nil {
		return fmt.Errorf("alerter client is not initialized")
	}

	_, err := c.telegramClient.SendMessageWithRequest(ctx, telegram.SendMessageRequest{
		ChatID:          c.chatID,
		Text:            message,
		MessageThreadID: c.messageThreadID,
	})
	if err != nil {
		c.log.Warn("failed to send alert",
			"error", err,
			"chat_id", c.chatID,
			"message_thread_id", c.messageThreadID,
		)
		return fmt.Errorf("failed to send alert: %w", err)
	}

	c.log.Debug("alert sent successfully", "chat_id", c.chatID)
	return nil
}
