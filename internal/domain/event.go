package domain

import "time"

// EventKind тип нормализованного события
type EventKind string

const (
	EventText       EventKind = "text"
	EventQuickReply EventKind = "quick_reply"
	EventPostback   EventKind = "postback"
)

// InboundEvent нормализованное входящее событие для конечного автомата
type InboundEvent struct {
	Kind      EventKind `json:"kind"`
	SenderID  string    `json:"sender_id"`
	MessageID string    `json:"message_id,omitempty"`
	Text      string    `json:"text,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Input текст для разбора: payload кнопки важнее текста
func (e InboundEvent) Input() string {
	if e.Payload != "" {
		return e.Payload
	}
	return e.Text
}

// DedupKey ключ для отсечения повторной доставки
func (e InboundEvent) DedupKey() string {
	if e.MessageID != "" {
		return e.MessageID
	}
	return ""
}
