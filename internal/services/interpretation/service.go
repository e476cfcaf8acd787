// Package interpretation трактовка расклада через LLM с шаблонным запасным вариантом.
package interpretation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/metrics"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
)

// Service реализует IInterpreter: один вызов провайдера на запрос
type Service struct {
	llm      service.ILLMProvider
	metrics  metrics.Recorder
	location *time.Location
	now      func() time.Time
	log      *slog.Logger
}

// New llm == nil значит провайдер не настроен, всегда работает запасной вариант
func New(llm service.ILLMProvider, location *time.Location, rec metrics.Recorder, log *slog.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		llm:      llm,
		metrics:  rec,
		location: location,
		now:      time.Now,
		log:      log,
	}
}

func (s *Service) Interpret(ctx context.Context, req service.InterpretRequest) (*service.Interpretation, error) {
	if req.Mode == service.InterpretInitial && len(req.Cards) != 3 {
		return nil, &domain.ValidationError{Field: "cards", Reason: fmt.Sprintf("expected 3 cards, got %d", len(req.Cards))}
	}

	started := s.now()
	text, err := s.generate(ctx, req)
	if err == nil {
		s.metrics.RecordInterpretation(string(req.Mode), false, s.now().Sub(started))
		return &service.Interpretation{Text: texts.Truncate(text)}, nil
	}

	s.log.Warn("interpretation provider failed",
		"error", err,
		"mode", req.Mode,
		"fallback", req.Fallback == service.FallbackTemplate,
	)

	if req.Fallback == service.FallbackRaise {
		return nil, fmt.Errorf("%w: %v", domain.ErrInterpretationUnavailable, err)
	}

	s.metrics.RecordInterpretation(string(req.Mode), true, s.now().Sub(started))
	return &service.Interpretation{Text: s.fallback(req), FromFallback: true}, nil
}

func (s *Service) generate(ctx context.Context, req service.InterpretRequest) (string, error) {
	if s.llm == nil {
		return "", domain.ErrProviderUnavailable
	}

	var prompt string
	switch req.Mode {
	case service.InterpretFollowup:
		prompt = buildFollowupPrompt(req)
	default:
		prompt = buildInitialPrompt(req, s.now().In(s.location))
	}

	text, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrProviderUnavailable)
	}
	return text, nil
}

func (s *Service) fallback(req service.InterpretRequest) string {
	if req.Mode == service.InterpretFollowup {
		return texts.FollowupUnavailable
	}
	return texts.Truncate(texts.FormatFallbackInterpretation(req.Question, req.Cards))
}

// IsUnavailable true если трактовку получить не удалось
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrInterpretationUnavailable)
}
