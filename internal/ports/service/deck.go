package service

import "github.com/gab-cat/tarot-bot/internal/domain"

// ICardDrawer вытягивает карты для расклада
type ICardDrawer interface {
	Draw() (domain.Cards, error)
}
