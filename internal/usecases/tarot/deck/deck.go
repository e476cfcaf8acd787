// Package deck колода таро и вытягивание карт.
package deck

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// SpreadSize карт в раскладе
const SpreadSize = 3

//go:embed cards.json
var cardsJSON []byte

type deckFile struct {
	Count int                `json:"count"`
	Cards []domain.TarotCard `json:"cards"`
}

// Deck неизменяемый справочник карт
type Deck struct {
	cards   []domain.TarotCard
	byImage map[string]domain.TarotCard
}

// Default встроенная колода из 78 карт
func Default() (*Deck, error) {
	var f deckFile
	if err := json.Unmarshal(cardsJSON, &f); err != nil {
		return nil, fmt.Errorf("failed to parse embedded deck: %w", err)
	}
	return New(f.Cards), nil
}

func New(cards []domain.TarotCard) *Deck {
	d := &Deck{
		cards:   make([]domain.TarotCard, len(cards)),
		byImage: make(map[string]domain.TarotCard, len(cards)),
	}
	copy(d.cards, cards)
	for _, c := range cards {
		d.byImage[c.Image] = c
	}
	return d
}

func (d *Deck) Len() int {
	return len(d.cards)
}

// Cards копия списка карт
func (d *Deck) Cards() []domain.TarotCard {
	out := make([]domain.TarotCard, len(d.cards))
	copy(out, d.cards)
	return out
}

// ByImage карта по имени файла картинки
func (d *Deck) ByImage(filename string) (domain.TarotCard, bool) {
	c, ok := d.byImage[filename]
	return c, ok
}

// Drawer тянет карты без возвращения, безопасен для конкурентного вызова
type Drawer struct {
	deck *Deck
	mu   sync.Mutex
	rnd  *rand.Rand
}

// NewDrawer rnd == nil значит случайный сид
func NewDrawer(deck *Deck, rnd *rand.Rand) *Drawer {
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>7|1))
	}
	return &Drawer{deck: deck, rnd: rnd}
}

// Draw три разные карты: прошлое, настоящее, будущее в порядке вытягивания.
// Ориентация каждой карты независима.
func (d *Drawer) Draw() (domain.Cards, error) {
	if d.deck.Len() < SpreadSize {
		return nil, &domain.InsufficientDeckError{Have: d.deck.Len(), Need: SpreadSize}
	}

	d.mu.Lock()
	idx := d.rnd.Perm(d.deck.Len())[:SpreadSize]
	reversed := make([]bool, SpreadSize)
	for i := range reversed {
		reversed[i] = d.rnd.IntN(2) == 1
	}
	d.mu.Unlock()

	cards := make(domain.Cards, 0, SpreadSize)
	for i, n := range idx {
		raw := d.deck.cards[n]
		meaning := raw.MeaningUpright
		if reversed[i] {
			meaning = raw.MeaningReversed
		}
		cards = append(cards, domain.Card{
			ID:          raw.ID,
			Name:        raw.Name,
			Meaning:     meaning,
			Position:    domain.SpreadPositions[i],
			Reversed:    reversed[i],
			Description: raw.Description,
			Arcana:      raw.Arcana,
			Image:       raw.Image,
		})
	}
	return cards, nil
}
