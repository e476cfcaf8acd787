// Package cardimages reusable-вложения Messenger для картинок карт.
//
// Порядок поиска: redis → таблица card_images → загрузка файла из S3 и upload в Messenger.
package cardimages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/cache"
	"github.com/gab-cat/tarot-bot/internal/ports/messenger"
	"github.com/gab-cat/tarot-bot/internal/ports/repository"
	"github.com/gab-cat/tarot-bot/internal/ports/storage"
	"golang.org/x/sync/singleflight"
)

const cacheTTL = 7 * 24 * time.Hour

// Config параметры загрузки картинок
type Config struct {
	MaxWidth int `envconfig:"MAX_WIDTH" default:"800"`
}

// deckCards источник списка карт для прогрева
type deckCards interface {
	Cards() []domain.TarotCard
}

// Service реализует ICardImageService
type Service struct {
	repo      repository.ICardImageRepo
	cache     cache.Cache
	files     storage.IS3Client
	messenger messenger.IClient
	deck      deckCards
	cfg       Config
	group     singleflight.Group
	now       func() time.Time
	log       *slog.Logger
}

func New(
	repo repository.ICardImageRepo,
	cache cache.Cache,
	files storage.IS3Client,
	messenger messenger.IClient,
	deck deckCards,
	cfg Config,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		files:     files,
		messenger: messenger,
		deck:      deck,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
}

func cacheKey(filename string, reversed bool) string {
	if reversed {
		return "card_attachment:reversed:" + filename
	}
	return "card_attachment:upright:" + filename
}

// AttachmentIDs id вложений в порядке карт. Карта без картинки пропускается,
// ошибка возвращается только если не получилось ни одной.
func (s *Service) AttachmentIDs(ctx context.Context, cards domain.Cards) ([]string, error) {
	ids := make([]string, 0, len(cards))
	var firstErr error
	for _, card := range cards {
		id, err := s.attachmentID(ctx, card.ID, card.Image, card.Reversed)
		if err != nil {
			s.log.Error("failed to resolve card attachment",
				"error", err,
				"card", card.ID,
				"reversed", card.Reversed,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 && firstErr != nil {
		return nil, fmt.Errorf("failed to resolve card attachments: %w", firstErr)
	}
	return ids, nil
}

func (s *Service) attachmentID(ctx context.Context, cardID, filename string, reversed bool) (string, error) {
	key := cacheKey(filename, reversed)

	if s.cache != nil {
		if id, err := s.cache.Get(ctx, key); err == nil && id != "" {
			s.touch(ctx, filename)
			return id, nil
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.log.Debug("card attachment cache get failed", "error", err, "key", key)
		}
	}

	// параллельные запросы одной картинки делают один upload
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.resolve(ctx, cardID, filename, reversed)
	})
	if err != nil {
		return "", err
	}
	id := v.(string)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, id, cacheTTL); err != nil {
			s.log.Debug("card attachment cache set failed", "error", err, "key", key)
		}
	}
	return id, nil
}

func (s *Service) resolve(ctx context.Context, cardID, filename string, reversed bool) (string, error) {
	record, err := s.repo.GetByFilename(ctx, filename)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("failed to get card image %s: %w", filename, err)
	}
	if record != nil {
		if id := record.AttachmentFor(reversed); id != nil && *id != "" {
			s.touch(ctx, filename)
			return *id, nil
		}
	}

	raw, err := s.files.GetFile(ctx, filename)
	if err != nil {
		return "", fmt.Errorf("failed to load card image %s: %w", filename, err)
	}
	data, err := prepareImage(raw, reversed, s.cfg.MaxWidth)
	if err != nil {
		return "", fmt.Errorf("failed to prepare card image %s: %w", filename, err)
	}

	id, err := s.messenger.UploadReusableImage(ctx, filename, data)
	if err != nil {
		return "", fmt.Errorf("failed to upload card image %s: %w", filename, err)
	}

	if err := s.repo.SaveAttachment(ctx, cardID, filename, reversed, id, s.now()); err != nil {
		// вложение уже есть в Messenger, в следующий раз загрузим заново
		s.log.Error("failed to save card attachment", "error", err, "filename", filename)
	}

	s.log.Info("card image uploaded", "filename", filename, "reversed", reversed)
	return id, nil
}

func (s *Service) touch(ctx context.Context, filename string) {
	if err := s.repo.TouchLastUsed(ctx, filename, s.now()); err != nil {
		s.log.Debug("failed to touch card image", "error", err, "filename", filename)
	}
}

// Warm загружает вложения для всех карт колоды в обеих ориентациях, возвращает число новых загрузок
func (s *Service) Warm(ctx context.Context) (int, error) {
	uploaded := 0
	var failed int
	for _, card := range s.deck.Cards() {
		for _, reversed := range []bool{false, true} {
			if ctx.Err() != nil {
				return uploaded, ctx.Err()
			}

			record, err := s.repo.GetByFilename(ctx, card.Image)
			if err == nil {
				if id := record.AttachmentFor(reversed); id != nil && *id != "" {
					continue
				}
			} else if !errors.Is(err, domain.ErrNotFound) {
				return uploaded, fmt.Errorf("failed to get card image %s: %w", card.Image, err)
			}

			if _, err := s.attachmentID(ctx, card.ID, card.Image, reversed); err != nil {
				failed++
				s.log.Warn("failed to warm card image", "error", err, "filename", card.Image, "reversed", reversed)
				continue
			}
			uploaded++
		}
	}
	if failed > 0 {
		return uploaded, fmt.Errorf("failed to warm %d card images", failed)
	}
	return uploaded, nil
}
