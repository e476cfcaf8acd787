package domain

import (
	"errors"
	"fmt"
)

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}

var (
	ErrNotFound                   = errors.New("not found")
	ErrStateConflict              = errors.New("state changed concurrently")
	ErrInvalidTransition          = errors.New("invalid transition")
	ErrHistoryClosed              = errors.New("conversation history is closed")
	ErrProviderUnavailable        = errors.New("provider unavailable")
	ErrInterpretationUnavailable  = errors.New("interpretation unavailable")
	ErrUnauthorizedAccess         = errors.New("unauthorized access")
	ErrPaymentWebhookUnauthorized = errors.New("payment webhook unauthorized")
	ErrInsufficientDeck           = errors.New("insufficient deck")
	ErrTimerNotFound              = errors.New("timer not found")
)

// ValidationError неверный ввод пользователя, состояние не меняется
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// QuotaKind какой лимит исчерпан
type QuotaKind string

const (
	QuotaDaily    QuotaKind = "daily"
	QuotaFollowup QuotaKind = "followup"
)

// QuotaExceededError исчерпан дневной лимит или лимит уточнений
type QuotaExceededError struct {
	Kind  QuotaKind
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded (limit %d)", e.Kind, e.Limit)
}

func IsQuotaExceeded(err error) bool {
	var qErr *QuotaExceededError
	return errors.As(err, &qErr)
}

// InsufficientDeckError в колоде меньше карт, чем нужно для расклада
type InsufficientDeckError struct {
	Have int
	Need int
}

func (e *InsufficientDeckError) Error() string {
	return fmt.Sprintf("deck has %d cards, need at least %d", e.Have, e.Need)
}

func (e *InsufficientDeckError) Unwrap() error {
	return ErrInsufficientDeck
}
