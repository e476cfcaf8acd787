package ingress

import (
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

const pageObject = "page"

// Parse разворачивает уведомление Messenger в нормализованные события.
// Эхо собственных сообщений страницы и события без текста и payload пропускаются.
func Parse(envelope domain.WebhookEnvelope) []domain.InboundEvent {
	if envelope.Object != pageObject {
		return nil
	}

	var events []domain.InboundEvent
	for _, entry := range envelope.Entry {
		for _, m := range entry.Messaging {
			if ev, ok := normalize(m); ok {
				events = append(events, ev)
			}
		}
	}
	return events
}

func normalize(m domain.MessagingEvent) (domain.InboundEvent, bool) {
	if m.Sender.ID == "" {
		return domain.InboundEvent{}, false
	}
	ev := domain.InboundEvent{
		SenderID:  m.Sender.ID,
		Timestamp: time.UnixMilli(m.Timestamp).UTC(),
	}

	switch {
	case m.Postback != nil:
		if m.Postback.Payload == "" {
			return ev, false
		}
		ev.Kind = domain.EventPostback
		ev.MessageID = m.Postback.Mid
		ev.Text = m.Postback.Title
		ev.Payload = m.Postback.Payload
		return ev, true

	case m.Message != nil:
		if m.Message.IsEcho {
			return ev, false
		}
		ev.MessageID = m.Message.Mid
		ev.Text = m.Message.Text
		if m.Message.QuickReply != nil && m.Message.QuickReply.Payload != "" {
			ev.Kind = domain.EventQuickReply
			ev.Payload = m.Message.QuickReply.Payload
			return ev, true
		}
		if ev.Text == "" {
			// вложения без текста автомат не разбирает
			return ev, false
		}
		ev.Kind = domain.EventText
		return ev, true
	}
	return ev, false
}
