package domain

import "time"

// CardImage закэшированные reusable-вложения Messenger для карты
type CardImage struct {
	ImageFilename        string     `json:"image_filename" db:"image_filename"`
	CardID               string     `json:"card_id" db:"card_id"`
	UprightAttachmentID  *string    `json:"upright_attachment_id,omitempty" db:"upright_attachment_id"`
	ReversedAttachmentID *string    `json:"reversed_attachment_id,omitempty" db:"reversed_attachment_id"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// AttachmentFor id вложения для нужной ориентации
func (c *CardImage) AttachmentFor(reversed bool) *string {
	if reversed {
		return c.ReversedAttachmentID
	}
	return c.UprightAttachmentID
}
