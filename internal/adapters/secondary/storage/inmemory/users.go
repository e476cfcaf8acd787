package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/google/uuid"
)

// UserRepo in-memory реализация IUserRepo с той же семантикой версий, что и pg
type UserRepo struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]domain.User
	byMessenger map[string]uuid.UUID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:        make(map[uuid.UUID]domain.User),
		byMessenger: make(map[string]uuid.UUID),
	}
}

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byMessenger[user.MessengerID]; ok {
		return fmt.Errorf("user %s already exists: %w", user.MessengerID, domain.ErrStateConflict)
	}
	r.byID[user.ID] = *user
	r.byMessenger[user.MessengerID] = user.ID
	return nil
}

func (r *UserRepo) GetByMessengerID(_ context.Context, messengerID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byMessenger[messengerID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", messengerID, domain.ErrNotFound)
	}
	u := r.byID[id]
	return &u, nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok || stored.Version != user.Version {
		return fmt.Errorf("update user %s at version %d: %w", user.ID, user.Version, domain.ErrStateConflict)
	}
	user.Version++
	r.byID[user.ID] = *user
	return nil
}

func (r *UserRepo) UpgradeTier(_ context.Context, id uuid.UUID, tier domain.SubscriptionTier) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return false, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if u.Tier.Rank() >= tier.Rank() {
		return false, nil
	}
	u.Tier = tier
	u.Version++
	u.UpdatedAt = time.Now().UTC()
	r.byID[id] = u
	return true, nil
}
