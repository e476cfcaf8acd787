package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// CardImageRepo in-memory реализация ICardImageRepo
type CardImageRepo struct {
	mu     sync.Mutex
	images map[string]domain.CardImage
}

func NewCardImageRepo() *CardImageRepo {
	return &CardImageRepo{images: make(map[string]domain.CardImage)}
}

func (r *CardImageRepo) GetByFilename(_ context.Context, filename string) (*domain.CardImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.images[filename]
	if !ok {
		return nil, fmt.Errorf("card image %s: %w", filename, domain.ErrNotFound)
	}
	return &img, nil
}

func (r *CardImageRepo) SaveAttachment(_ context.Context, cardID, filename string, reversed bool, attachmentID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.images[filename]
	if !ok {
		img = domain.CardImage{ImageFilename: filename, CardID: cardID, CreatedAt: now}
	}
	id := attachmentID
	if reversed {
		img.ReversedAttachmentID = &id
	} else {
		img.UprightAttachmentID = &id
	}
	r.images[filename] = img
	return nil
}

func (r *CardImageRepo) TouchLastUsed(_ context.Context, filename string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.images[filename]
	if !ok {
		return nil
	}
	img.LastUsedAt = &now
	r.images[filename] = img
	return nil
}
