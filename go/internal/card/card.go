package card

import (
	"fmt"

	"github.com/google/uuid"
)

// Suit is one of the four suits of the deck.
type Suit string

const (
	SuitCoins  Suit = "coins"
	SuitSwords Suit = "swords"
	SuitCups   Suit = "cups"
	SuitClubs  Suit = "clubs"
)

// Suits lists the suits in deck enumeration order.
var Suits = []Suit{SuitCoins, SuitSwords, SuitCups, SuitClubs}

// Valid reports whether s names a real suit.
func (s Suit) Valid() bool {
	switch s {
	case SuitCoins, SuitSwords, SuitCups, SuitClubs:
		return true
	}
	return false
}

// Rank is the face value of a card. Ranks 8 and 9 do not exist.
type Rank int

const (
	RankBlock      Rank = 1
	RankForcedDraw Rank = 2
	RankWild       Rank = 7
)

// Ranks lists the ranks in deck enumeration order.
var Ranks = []Rank{1, 2, 3, 4, 5, 6, 7, 10, 11, 12}

// IsSpecial reports whether the rank triggers an effect when played.
func (r Rank) IsSpecial() bool {
	return r == RankBlock || r == RankForcedDraw || r == RankWild
}

// Card is an immutable card instance. ID is unique per instance.
type Card struct {
	ID   string `json:"id"`
	Suit Suit   `json:"suit"`
	Rank Rank   `json:"rank"`
}

// New returns a card with a fresh instance id.
func New(suit Suit, rank Rank) Card {
	return Card{ID: uuid.NewString(), Suit: suit, Rank: rank}
}

func (c Card) String() string {
	return fmt.Sprintf("%d of %s", c.Rank, c.Suit)
}
