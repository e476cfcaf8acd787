package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/messenger"
)

// OutboundMessage отправленное сообщение
type OutboundMessage struct {
	RecipientID   string
	Text          string
	QuickReplies  []domain.QuickReplyOption
	AttachmentIDs []string
}

// Outbox реализация messenger.IClient без сети: пишет исходящие в лог и хранит их.
// Используется локально без токена страницы и в тестах.
type Outbox struct {
	mu       sync.Mutex
	messages []OutboundMessage
	uploads  map[string]int
	profiles map[string]*messenger.Profile
	failWith error
	log      *slog.Logger
}

func NewOutbox(log *slog.Logger) *Outbox {
	return &Outbox{
		uploads:  make(map[string]int),
		profiles: make(map[string]*messenger.Profile),
		log:      log,
	}
}

// FailWith все последующие отправки вернут err, nil снимает сбой
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failWith = err
}

// SetProfile профиль, который вернёт GetUserProfile
func (o *Outbox) SetProfile(psid string, p *messenger.Profile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.profiles[psid] = p
}

func (o *Outbox) SendText(_ context.Context, recipientID, text string, quickReplies []domain.QuickReplyOption) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failWith != nil {
		return o.failWith
	}
	o.messages = append(o.messages, OutboundMessage{RecipientID: recipientID, Text: text, QuickReplies: quickReplies})
	o.log.Debug("outbox text", "recipient_id", recipientID, "text", text)
	return nil
}

func (o *Outbox) SendImages(_ context.Context, recipientID string, attachmentIDs []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failWith != nil {
		return o.failWith
	}
	o.messages = append(o.messages, OutboundMessage{RecipientID: recipientID, AttachmentIDs: attachmentIDs})
	o.log.Debug("outbox images", "recipient_id", recipientID, "count", len(attachmentIDs))
	return nil
}

func (o *Outbox) UploadReusableImage(_ context.Context, filename string, data []byte) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failWith != nil {
		return "", o.failWith
	}
	o.uploads[filename]++
	return fmt.Sprintf("att-%s-%d", filename, o.uploads[filename]), nil
}

func (o *Outbox) GetUserProfile(_ context.Context, psid string) (*messenger.Profile, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.profiles[psid]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", psid, domain.ErrNotFound)
	}
	return p, nil
}

// Messages копия отправленных сообщений для получателя
func (o *Outbox) Messages(recipientID string) []OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []OutboundMessage
	for _, m := range o.messages {
		if m.RecipientID == recipientID {
			out = append(out, m)
		}
	}
	return out
}

// Texts только тексты сообщений для получателя
func (o *Outbox) Texts(recipientID string) []string {
	var out []string
	for _, m := range o.Messages(recipientID) {
		if m.Text != "" {
			out = append(out, m.Text)
		}
	}
	return out
}

// Uploads сколько раз загружался файл
func (o *Outbox) Uploads(filename string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.uploads[filename]
}

// Reset очищает отправленные сообщения
func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = nil
}
