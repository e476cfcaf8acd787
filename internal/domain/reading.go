package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FollowState состояние уточняющей сессии внутри расклада
type FollowState string

const (
	FollowStateActive             FollowState = "active"
	FollowStateCompleted          FollowState = "completed"
	FollowStateFollowupAvailable  FollowState = "followup_available"
	FollowStateFollowupInProgress FollowState = "followup_in_progress"
	FollowStateEnded              FollowState = "ended"
)

// IsFollowupActive true пока можно задавать уточняющие вопросы
func (s FollowState) IsFollowupActive() bool {
	return s == FollowStateFollowupAvailable || s == FollowStateFollowupInProgress
}

// HistoryKind тип записи в истории диалога
type HistoryKind string

const (
	HistoryInitialReading   HistoryKind = "initial_reading"
	HistoryFollowupQuestion HistoryKind = "followup_question"
	HistoryFollowupResponse HistoryKind = "followup_response"
	HistorySessionEnd       HistoryKind = "session_end"
)

// FollowupContextSize сколько последних записей уходит в промпт уточнения
const FollowupContextSize = 6

// HistoryEntry запись истории диалога
type HistoryEntry struct {
	Kind           HistoryKind `json:"kind"`
	Timestamp      time.Time   `json:"timestamp"`
	Content        string      `json:"content"`
	QuestionNumber *int        `json:"question_number,omitempty"`
}

// ConversationHistory история (JSONB), только дописывается
type ConversationHistory []HistoryEntry

// Scan реализует sql.Scanner для JSONB
func (h *ConversationHistory) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for conversation history: %T", value)
	}

	if len(bytes) == 0 {
		*h = nil
		return nil
	}

	return json.Unmarshal(bytes, h)
}

// Value реализует driver.Valuer
func (h ConversationHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	return json.Marshal(h)
}

// Closed true если последняя запись session_end
func (h ConversationHistory) Closed() bool {
	return len(h) > 0 && h[len(h)-1].Kind == HistorySessionEnd
}

// Reading расклад из трёх карт и его уточняющая сессия
type Reading struct {
	ID                uuid.UUID           `json:"id" db:"id"`
	UserID            uuid.UUID           `json:"user_id" db:"user_id"`
	Question          *string             `json:"question,omitempty" db:"question"`
	Cards             Cards               `json:"cards" db:"cards"`
	Interpretation    string              `json:"interpretation" db:"interpretation"`
	FollowState       FollowState         `json:"follow_state" db:"follow_state"`
	MaxFollowups      int                 `json:"max_followups" db:"max_followups"`
	FollowupsUsed     int                 `json:"followups_used" db:"followups_used"`
	History           ConversationHistory `json:"history" db:"history"`
	ExpiryTimerHandle *string             `json:"expiry_timer_handle,omitempty" db:"expiry_timer_handle"`
	Version           int64               `json:"version" db:"version"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" db:"updated_at"`
}

// NewReading создаёт расклад, первая запись истории всегда initial_reading
func NewReading(userID uuid.UUID, question string, cards Cards, interpretation string, now time.Time) *Reading {
	var q *string
	if question != "" {
		q = &question
	}
	return &Reading{
		ID:             uuid.New(),
		UserID:         userID,
		Question:       q,
		Cards:          cards,
		Interpretation: interpretation,
		FollowState:    FollowStateActive,
		History: ConversationHistory{{
			Kind:      HistoryInitialReading,
			Timestamp: now,
			Content:   interpretation,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append дописывает запись в историю. После session_end история закрыта.
// Время записи не может быть раньше предыдущей.
func (r *Reading) Append(entry HistoryEntry) error {
	if len(r.History) == 0 && entry.Kind != HistoryInitialReading {
		return fmt.Errorf("%w: first entry must be %s", ErrHistoryClosed, HistoryInitialReading)
	}
	if r.History.Closed() {
		return ErrHistoryClosed
	}
	if n := len(r.History); n > 0 && entry.Timestamp.Before(r.History[n-1].Timestamp) {
		entry.Timestamp = r.History[n-1].Timestamp
	}
	r.History = append(r.History, entry)
	r.UpdatedAt = entry.Timestamp
	return nil
}

// Complete active → completed
func (r *Reading) Complete(now time.Time) error {
	if r.FollowState != FollowStateActive {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, r.FollowState)
	}
	r.FollowState = FollowStateCompleted
	r.UpdatedAt = now
	return nil
}

// StartFollowupSession completed → followup_available, лимит фиксируется по тарифу
func (r *Reading) StartFollowupSession(tier SubscriptionTier, now time.Time) error {
	if r.FollowState != FollowStateCompleted {
		return fmt.Errorf("%w: start follow-up from %s", ErrInvalidTransition, r.FollowState)
	}
	r.FollowState = FollowStateFollowupAvailable
	r.MaxFollowups = tier.FollowupLimit()
	r.FollowupsUsed = 0
	r.UpdatedAt = now
	return nil
}

// RemainingFollowups сколько вопросов ещё можно задать
func (r *Reading) RemainingFollowups() int {
	left := r.MaxFollowups - r.FollowupsUsed
	if left < 0 {
		return 0
	}
	return left
}

// CheckFollowupAllowed проверяет, что вопрос можно принять
func (r *Reading) CheckFollowupAllowed() error {
	if !r.FollowState.IsFollowupActive() {
		return fmt.Errorf("%w: follow-up in %s", ErrInvalidTransition, r.FollowState)
	}
	if r.FollowupsUsed >= r.MaxFollowups {
		return &QuotaExceededError{Kind: QuotaFollowup, Limit: r.MaxFollowups}
	}
	return nil
}

// RecordFollowup дописывает вопрос и ответ, увеличивает счётчик
func (r *Reading) RecordFollowup(question, answer string, now time.Time) error {
	if err := r.CheckFollowupAllowed(); err != nil {
		return err
	}
	if r.History.Closed() {
		return ErrHistoryClosed
	}

	number := r.FollowupsUsed + 1
	if err := r.Append(HistoryEntry{Kind: HistoryFollowupQuestion, Timestamp: now, Content: question, QuestionNumber: &number}); err != nil {
		return err
	}
	if err := r.Append(HistoryEntry{Kind: HistoryFollowupResponse, Timestamp: now, Content: answer, QuestionNumber: &number}); err != nil {
		return err
	}

	r.FollowupsUsed = number
	r.FollowState = FollowStateFollowupInProgress
	return nil
}

// EndSession закрывает уточняющую сессию
func (r *Reading) EndSession(now time.Time) error {
	if r.FollowState == FollowStateEnded {
		return fmt.Errorf("%w: already ended", ErrInvalidTransition)
	}
	if err := r.Append(HistoryEntry{Kind: HistorySessionEnd, Timestamp: now}); err != nil {
		return err
	}
	r.FollowState = FollowStateEnded
	r.ExpiryTimerHandle = nil
	r.UpdatedAt = now
	return nil
}

// FollowupContext исходная трактовка и прошлые ответы, последние FollowupContextSize записей
func (r *Reading) FollowupContext() []HistoryEntry {
	var ctx []HistoryEntry
	for _, e := range r.History {
		if e.Kind == HistoryInitialReading || e.Kind == HistoryFollowupResponse {
			ctx = append(ctx, e)
		}
	}
	if len(ctx) > FollowupContextSize {
		ctx = ctx[len(ctx)-FollowupContextSize:]
	}
	return ctx
}

// OwnedBy проверка владельца
func (r *Reading) OwnedBy(userID uuid.UUID) error {
	if r.UserID != userID {
		return ErrUnauthorizedAccess
	}
	return nil
}
