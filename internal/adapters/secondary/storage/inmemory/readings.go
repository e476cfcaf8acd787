package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/google/uuid"
)

// ReadingRepo in-memory реализация IReadingRepo
type ReadingRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Reading
}

func NewReadingRepo() *ReadingRepo {
	return &ReadingRepo{byID: make(map[uuid.UUID]*domain.Reading)}
}

// cloneReading копия с отдельными слайсами, чтобы вызывающий не менял хранимое
func cloneReading(r *domain.Reading) *domain.Reading {
	c := *r
	c.Cards = append(domain.Cards(nil), r.Cards...)
	c.History = append(domain.ConversationHistory(nil), r.History...)
	return &c
}

func (r *ReadingRepo) Create(_ context.Context, reading *domain.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(reading.Cards) != len(domain.SpreadPositions) {
		return fmt.Errorf("reading must contain %d cards, got %d", len(domain.SpreadPositions), len(reading.Cards))
	}
	if _, ok := r.byID[reading.ID]; ok {
		return fmt.Errorf("reading %s already exists: %w", reading.ID, domain.ErrStateConflict)
	}
	r.byID[reading.ID] = cloneReading(reading)
	return nil
}

func (r *ReadingRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reading, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", id, domain.ErrNotFound)
	}
	return cloneReading(reading), nil
}

func (r *ReadingRepo) GetLatestByUser(_ context.Context, userID uuid.UUID, limit int) ([]*domain.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*domain.Reading
	for _, reading := range r.byID {
		if reading.UserID == userID {
			result = append(result, cloneReading(reading))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *ReadingRepo) Update(_ context.Context, reading *domain.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[reading.ID]
	if !ok || stored.Version != reading.Version {
		return fmt.Errorf("update reading %s at version %d: %w", reading.ID, reading.Version, domain.ErrStateConflict)
	}
	reading.Version++
	r.byID[reading.ID] = cloneReading(reading)
	return nil
}

// Count количество раскладов, для тестов
func (r *ReadingRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
