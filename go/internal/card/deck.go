package card

import (
	"errors"
	"math/rand"
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 40

// ErrEmptyDeck is returned when no card can be drawn, even after recycling.
var ErrEmptyDeck = errors.New("deck is empty")

// Pile is an ordered stack of cards. The last element is the top.
type Pile []Card

// Len returns the number of cards in the pile.
func (p Pile) Len() int { return len(p) }

// Top returns the top card without removing it.
func (p Pile) Top() (Card, bool) {
	if len(p) == 0 {
		return Card{}, false
	}
	return p[len(p)-1], true
}

// Push puts c on top of the pile.
func (p *Pile) Push(c Card) {
	*p = append(*p, c)
}

// Pop removes and returns the top card.
func (p *Pile) Pop() (Card, error) {
	n := len(*p)
	if n == 0 {
		return Card{}, ErrEmptyDeck
	}
	c := (*p)[n-1]
	*p = (*p)[:n-1]
	return c, nil
}

// BuildDeck returns the 40-card set in suit-major enumeration order.
func BuildDeck() Pile {
	deck := make(Pile, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, New(s, r))
		}
	}
	return deck
}

// Shuffle permutes cards in place with Fisher-Yates.
func Shuffle(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Recycle rebuilds an exhausted deck from the discard pile. The top discard
// stays put and the rest is shuffled into the deck. It reports whether the
// deck was refilled.
func Recycle(deck, discard *Pile, rng *rand.Rand) bool {
	if len(*deck) > 0 || len(*discard) <= 1 {
		return false
	}
	top := (*discard)[len(*discard)-1]
	rest := make(Pile, len(*discard)-1)
	copy(rest, (*discard)[:len(*discard)-1])
	Shuffle(rest, rng)
	*deck = rest
	*discard = Pile{top}
	return true
}

// Draw pops the top of deck, recycling the discard pile first when the deck
// is exhausted.
func Draw(deck, discard *Pile, rng *rand.Rand) (Card, error) {
	Recycle(deck, discard, rng)
	return deck.Pop()
}

// CanDraw reports whether Draw would succeed.
func CanDraw(deck, discard Pile) bool {
	return len(deck) > 0 || len(discard) > 1
}
