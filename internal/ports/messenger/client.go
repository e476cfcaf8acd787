package messenger

import (
	"context"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// Profile публичный профиль пользователя Messenger
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// IClient клиент Messenger Send API
type IClient interface {
	SendText(ctx context.Context, recipientID, text string, quickReplies []domain.QuickReplyOption) error
	// SendImages отправляет вложения по reusable attachment id, по одному сообщению на картинку
	SendImages(ctx context.Context, recipientID string, attachmentIDs []string) error
	// UploadReusableImage загружает картинку и возвращает attachment id
	UploadReusableImage(ctx context.Context, filename string, data []byte) (string, error)
	GetUserProfile(ctx context.Context, psid string) (*Profile, error)
}

// IProfileConfigurator настройка экрана приветствия
type IProfileConfigurator interface {
	SetGetStarted(ctx context.Context, payload string) error
	SetGreeting(ctx context.Context, text string) error
}
