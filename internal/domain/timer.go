package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TimerPurpose назначение таймера, по нему выбирается обработчик
type TimerPurpose string

const (
	TimerQuotaReset      TimerPurpose = "quota_reset_notification"
	TimerFollowupExpiry  TimerPurpose = "followup_auto_end"
	TimerReadingCooldown TimerPurpose = "reading_complete_cooldown"
)

// TimerStatus статус таймера
type TimerStatus string

const (
	TimerStatusPending   TimerStatus = "pending"
	TimerStatusFired     TimerStatus = "fired"
	TimerStatusCancelled TimerStatus = "cancelled"
	TimerStatusFailed    TimerStatus = "failed"
)

// Timer отложенный вызов, id служит непрозрачным handle
type Timer struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Purpose   TimerPurpose    `json:"purpose" db:"purpose"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	RunAt     time.Time       `json:"run_at" db:"run_at"`
	Status    TimerStatus     `json:"status" db:"status"`
	Attempts  int             `json:"attempts" db:"attempts"`
	LastError *string         `json:"last_error,omitempty" db:"last_error"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Handle строковый handle для хранения рядом с владельцем
func (t *Timer) Handle() string {
	return t.ID.String()
}

// TimerPayload полезная нагрузка таймеров бота
type TimerPayload struct {
	MessengerID string     `json:"messenger_id"`
	ReadingID   *uuid.UUID `json:"reading_id,omitempty"`
}
