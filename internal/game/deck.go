package game

import (
	"math/rand"

	"github.com/nmoreno/gringo/internal/models"
)

var (
	suits  = []string{"Hearts", "Diamonds", "Clubs", "Spades"}
	values = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
)

// Deck is an ordered run of unique cards. Cards only ever leave it; an
// exhausted deck is not replenished from play.
type Deck struct {
	cards []*models.Card
}

// NewDeck builds the full 52-card set in suit/value order, assigns ids by
// generation sequence, then applies an in-place Fisher-Yates shuffle.
func NewDeck(r *rand.Rand) *Deck {
	cards := make([]*models.Card, 0, len(suits)*len(values))
	id := 0
	for _, suit := range suits {
		for _, value := range values {
			cards = append(cards, &models.Card{ID: id, Suit: suit, Value: value})
			id++
		}
	}
	for i := len(cards) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}
}

// DrawTop removes and returns the first card. ok is false when the deck is
// empty; callers treat that as the action being unavailable, not a fault.
func (d *Deck) DrawTop() (*models.Card, bool) {
	if len(d.cards) == 0 {
		return nil, false
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, true
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int {
	return len(d.cards)
}
