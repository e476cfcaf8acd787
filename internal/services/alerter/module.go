package alerter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/alerter"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
)

// Service реализует IAlerterService для отправки алертов.
// Без клиента алерт только пишется в лог.
type Service struct {
	client  *alerter.Client
	appName string
	log     *slog.Logger
}

// New создаёт новый сервис для отправки алертов
func New(client *alerter.Client, appName string, log *slog.Logger) service.IAlerterService {
	return &Service{
		client:  client,
		appName: appName,
		log:     log,
	}
}

// SendAlert отправляет алерт с именем приложения в заголовке
func (s *Service) SendAlert(ctx context.Context, message string) error {
	if s.client == nil {
		s.log.Warn("alert (alerter disabled)", "message", message)
		return nil
	}

	if err := s.client.SendAlert(ctx, fmt.Sprintf("[%s]\n%s", s.appName, message)); err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	return nil
}
