package domain

// дока - https://developers.facebook.com/docs/messenger-platform/webhooks

// WebhookEnvelope - входящее уведомление от Messenger Platform
type WebhookEnvelope struct {
	Object string         `json:"object"` // "page"
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry - пачка событий одной страницы
type WebhookEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent - одно событие переписки
type MessagingEvent struct {
	Sender    Participant `json:"sender"`
	Recipient Participant `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Message   *Message    `json:"message,omitempty"`
	Postback  *Postback   `json:"postback,omitempty"`
}

// Participant - PSID отправителя или id страницы
type Participant struct {
	ID string `json:"id"`
}

// Message - сообщение пользователя
type Message struct {
	Mid        string      `json:"mid"`
	Text       string      `json:"text,omitempty"`
	IsEcho     bool        `json:"is_echo,omitempty"`
	QuickReply *QuickReply `json:"quick_reply,omitempty"`
}

// QuickReply - нажатая быстрая кнопка
type QuickReply struct {
	Payload string `json:"payload"`
}

// Postback - нажатие кнопки (Get Started и т.п.)
type Postback struct {
	Mid     string `json:"mid,omitempty"`
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

// QuickReplyOption - кнопка, которую отправляем пользователю
type QuickReplyOption struct {
	Title   string
	Payload string
}
