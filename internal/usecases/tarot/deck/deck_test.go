package deck

import (
	"math/rand/v2"
	"testing"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 78, d.Len())

	seen := map[string]bool{}
	for _, c := range d.Cards() {
		assert.False(t, seen[c.ID], "duplicate card id %s", c.ID)
		seen[c.ID] = true
		assert.NotEmpty(t, c.MeaningUpright)
		assert.NotEmpty(t, c.MeaningReversed)
		assert.NotEmpty(t, c.Image)
	}

	fool, ok := d.ByImage("m00.jpg")
	require.True(t, ok)
	assert.Equal(t, "The Fool", fool.Name)
	assert.Equal(t, domain.ArcanaMajor, fool.Arcana)
}

func TestDrawer_Draw(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	drawer := NewDrawer(d, rand.New(rand.NewPCG(1, 2)))

	for i := 0; i < 500; i++ {
		cards, err := drawer.Draw()
		require.NoError(t, err)
		require.Len(t, cards, SpreadSize)

		ids := map[string]bool{}
		for j, c := range cards {
			assert.False(t, ids[c.ID], "card drawn twice in one spread")
			ids[c.ID] = true
			assert.Equal(t, domain.SpreadPositions[j], c.Position)

			raw, ok := d.ByImage(c.Image)
			require.True(t, ok)
			if c.Reversed {
				assert.Equal(t, raw.MeaningReversed, c.Meaning)
			} else {
				assert.Equal(t, raw.MeaningUpright, c.Meaning)
			}
		}
	}
}

func TestDrawer_OrientationIsRoughlyFair(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	drawer := NewDrawer(d, rand.New(rand.NewPCG(42, 7)))

	reversed, total := 0, 0
	for i := 0; i < 2000; i++ {
		cards, err := drawer.Draw()
		require.NoError(t, err)
		for _, c := range cards {
			total++
			if c.Reversed {
				reversed++
			}
		}
	}
	ratio := float64(reversed) / float64(total)
	assert.InDelta(t, 0.5, ratio, 0.05)
}

func TestDrawer_InsufficientDeck(t *testing.T) {
	small := New([]domain.TarotCard{{ID: "a", Image: "a.jpg"}, {ID: "b", Image: "b.jpg"}})
	_, err := NewDrawer(small, nil).Draw()

	var deckErr *domain.InsufficientDeckError
	require.ErrorAs(t, err, &deckErr)
	assert.Equal(t, 2, deckErr.Have)
	assert.ErrorIs(t, err, domain.ErrInsufficientDeck)
}

func TestDrawer_ExactlyThreeCards(t *testing.T) {
	small := New([]domain.TarotCard{{ID: "a", Image: "a.jpg"}, {ID: "b", Image: "b.jpg"}, {ID: "c", Image: "c.jpg"}})
	cards, err := NewDrawer(small, nil).Draw()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, []string{cards[0].ID, cards[1].ID, cards[2].ID})
}
