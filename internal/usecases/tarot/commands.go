package tarot

import (
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
)

// Command побочный эффект, который исполняет executor
type Command interface {
	command()
}

// TextSource откуда брать текст сообщения
type TextSource int

const (
	TextLiteral        TextSource = iota // SendText.Text
	TextCards                            // описание вытянутых карт
	TextInterpretation                   // трактовка расклада
	TextFollowupAnswer                   // ответ на уточняющий вопрос
	TextFollowupStatus                   // остаток вопросов и кнопки сессии
	TextCheckoutLink                     // ссылка на оплату из InvokePaymentCheckout
)

type SendText struct {
	Source       TextSource
	Text         string
	QuickReplies []domain.QuickReplyOption
}

// SendImages картинки вытянутых карт
type SendImages struct{}

// MutateUser изменения пользователя, применяются и сохраняются одной CAS-записью
type MutateUser struct {
	TopState          *domain.TopState
	Birthdate         *string
	CountReading      bool
	ClearNotification bool
}

// ReadingOp операция над раскладом
type ReadingOp string

const (
	ReadingCreate         ReadingOp = "create"
	ReadingStartFollowups ReadingOp = "start_followups" // active → completed → followup_available
	ReadingAppendFollowup ReadingOp = "append_followup"
	ReadingEnd            ReadingOp = "end"
)

type MutateReading struct {
	Op       ReadingOp
	Question string // для ReadingAppendFollowup
}

// ArmTimer взводит таймер, прежний таймер того же назначения отменяется
// After отсчитывается от момента исполнения команды, а не от прихода события
type ArmTimer struct {
	Purpose domain.TimerPurpose
	At      time.Time
	After   time.Duration
}

// CancelTimer отменяет таймер назначения по handle, сохранённому у владельца
type CancelTimer struct {
	Purpose domain.TimerPurpose
}

type InvokeCardDraw struct{}

type InvokeInterpretation struct {
	Mode     service.InterpretMode
	Question string
	Fallback service.FallbackPolicy
}

type InvokePaymentCheckout struct {
	Plan domain.SubscriptionTier
}

func (SendText) command()              {}
func (SendImages) command()            {}
func (MutateUser) command()            {}
func (MutateReading) command()         {}
func (ArmTimer) command()              {}
func (CancelTimer) command()           {}
func (InvokeCardDraw) command()        {}
func (InvokeInterpretation) command()  {}
func (InvokePaymentCheckout) command() {}

func setState(s domain.TopState) MutateUser {
	return MutateUser{TopState: &s}
}

func say(text string, replies ...domain.QuickReplyOption) SendText {
	return SendText{Text: text, QuickReplies: replies}
}
