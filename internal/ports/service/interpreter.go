package service

import (
	"context"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// InterpretMode какой промпт строить
type InterpretMode string

const (
	InterpretInitial  InterpretMode = "initial"
	InterpretFollowup InterpretMode = "followup"
)

// FallbackPolicy что делать при недоступности LLM
type FallbackPolicy int

const (
	FallbackTemplate FallbackPolicy = iota // вернуть шаблонный текст
	FallbackRaise                          // вернуть domain.ErrInterpretationUnavailable
)

// InterpretRequest входные данные для трактовки
type InterpretRequest struct {
	Mode      InterpretMode
	Question  string
	Cards     domain.Cards
	Birthdate string
	Name      string
	// History контекст для уточнения: исходная трактовка и прошлые ответы
	History  []domain.HistoryEntry
	Fallback FallbackPolicy
}

// Interpretation результат, FromFallback true если ответ шаблонный
type Interpretation struct {
	Text         string
	FromFallback bool
}

// IInterpreter трактовка расклада
type IInterpreter interface {
	Interpret(ctx context.Context, req InterpretRequest) (*Interpretation, error)
}

// ILLMProvider один вызов генерации
type ILLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
