package match

import "github.com/mcdev12/duel/go/internal/card"

// Player is one seat of a match. ID is the stable identity used for lookups;
// Handle is the current transport connection and may change on reconnect.
type Player struct {
	ID     string
	Handle string
	Name   string
	Avatar string

	hand []card.Card
}

// NewPlayer returns a player with an empty hand.
func NewPlayer(id, handle, name, avatar string) *Player {
	return &Player{ID: id, Handle: handle, Name: name, Avatar: avatar}
}

// Hand returns a copy of the held cards in insertion order.
func (p *Player) Hand() []card.Card {
	out := make([]card.Card, len(p.hand))
	copy(out, p.hand)
	return out
}

// HandSize returns the number of held cards.
func (p *Player) HandSize() int { return len(p.hand) }

// AddCard appends c to the hand.
func (p *Player) AddCard(c card.Card) {
	p.hand = append(p.hand, c)
}

// RemoveCard removes the card with the given id and returns it.
func (p *Player) RemoveCard(id string) (card.Card, bool) {
	for i, c := range p.hand {
		if c.ID == id {
			p.hand = append(p.hand[:i], p.hand[i+1:]...)
			return c, true
		}
	}
	return card.Card{}, false
}

// Card returns the held card with the given id.
func (p *Player) Card(id string) (card.Card, bool) {
	for _, c := range p.hand {
		if c.ID == id {
			return c, true
		}
	}
	return card.Card{}, false
}

// HasRank reports whether any held card has rank r.
func (p *Player) HasRank(r card.Rank) bool {
	for _, c := range p.hand {
		if c.Rank == r {
			return true
		}
	}
	return false
}

// ClearHand drops every held card.
func (p *Player) ClearHand() {
	p.hand = nil
}

func (p *Player) emptyHand() bool { return len(p.hand) == 0 }
