package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionTier уровень подписки пользователя
type SubscriptionTier string

const (
	TierFree   SubscriptionTier = "free"
	TierMystic SubscriptionTier = "mystic" // средний тариф
	TierOracle SubscriptionTier = "oracle" // верхний тариф, безлимит
)

// UnlimitedReadings маркер безлимитного дневного лимита
const UnlimitedReadings = -1

func (t SubscriptionTier) IsValid() bool {
	switch t {
	case TierFree, TierMystic, TierOracle:
		return true
	}
	return false
}

// DailyReadingLimit количество раскладов в календарный день
func (t SubscriptionTier) DailyReadingLimit() int {
	switch t {
	case TierMystic:
		return 5
	case TierOracle:
		return UnlimitedReadings
	default:
		return 1
	}
}

// FollowupLimit количество уточняющих вопросов на один расклад
func (t SubscriptionTier) FollowupLimit() int {
	switch t {
	case TierMystic:
		return 3
	case TierOracle:
		return 5
	default:
		return 1
	}
}

// IsUnlimited true для тарифа без дневного лимита
func (t SubscriptionTier) IsUnlimited() bool {
	return t.DailyReadingLimit() == UnlimitedReadings
}

// Rank порядок тарифов, нужен чтобы не понизить тариф повторной оплатой
func (t SubscriptionTier) Rank() int {
	switch t {
	case TierMystic:
		return 1
	case TierOracle:
		return 2
	default:
		return 0
	}
}

// TopState состояние диалога на уровне пользователя
type TopState string

const (
	TopStateNone              TopState = "none"
	TopStateWaitingBirthdate  TopState = "waiting_birthdate"
	TopStateWaitingQuestion   TopState = "waiting_question"
	TopStateReadingInProgress TopState = "reading_in_progress"
	TopStateReadingComplete   TopState = "reading_complete"
)

func (s TopState) IsValid() bool {
	switch s {
	case TopStateNone, TopStateWaitingBirthdate, TopStateWaitingQuestion,
		TopStateReadingInProgress, TopStateReadingComplete:
		return true
	}
	return false
}

// User пользователь Messenger
type User struct {
	ID                        uuid.UUID        `json:"id" db:"id"`
	MessengerID               string           `json:"messenger_id" db:"messenger_id"` // PSID
	FirstName                 *string          `json:"first_name,omitempty" db:"first_name"`
	LastName                  *string          `json:"last_name,omitempty" db:"last_name"`
	Tier                      SubscriptionTier `json:"tier" db:"tier"`
	Birthdate                 *string          `json:"birthdate,omitempty" db:"birthdate"` // "Oct 15"
	LastReadingAt             *time.Time       `json:"last_reading_at,omitempty" db:"last_reading_at"`
	ReadingsToday             int              `json:"readings_today" db:"readings_today"`
	TopState                  TopState         `json:"top_state" db:"top_state"`
	PendingNotificationHandle *string          `json:"pending_notification_handle,omitempty" db:"pending_notification_handle"`
	Version                   int64            `json:"version" db:"version"` // для compare-and-swap
	CreatedAt                 time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time        `json:"updated_at" db:"updated_at"`
}

// NewUser создаёт пользователя в начальном состоянии
func NewUser(messengerID string, now time.Time) *User {
	return &User{
		ID:          uuid.New(),
		MessengerID: messengerID,
		Tier:        TierFree,
		TopState:    TopStateNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasBirthdate true если дата рождения уже собрана
func (u *User) HasBirthdate() bool {
	return u.Birthdate != nil && *u.Birthdate != ""
}

// DisplayName имя для приветствий
func (u *User) DisplayName() string {
	if u.FirstName != nil && *u.FirstName != "" {
		return *u.FirstName
	}
	return "seeker"
}
