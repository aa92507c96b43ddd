package match

import "github.com/mcdev12/duel/go/internal/card"

// AutoPlayStrategy picks the card played on behalf of a player whose turn
// timed out. Returning false means the player draws instead.
type AutoPlayStrategy interface {
	SelectCard(m *Match, idx int) (card.Card, bool)
}

// PreferPlainStrategy plays the first legal card without an effect, then the
// first legal card of any kind.
type PreferPlainStrategy struct{}

func (PreferPlainStrategy) SelectCard(m *Match, idx int) (card.Card, bool) {
	var fallback *card.Card
	for _, c := range m.Players[idx].hand {
		if !m.CanPlay(idx, c) {
			continue
		}
		if !c.Rank.IsSpecial() {
			return c, true
		}
		if fallback == nil {
			c := c
			fallback = &c
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return card.Card{}, false
}

// AutoActionKind describes what an auto-play did.
type AutoActionKind string

const (
	AutoActionPlay AutoActionKind = "play"
	AutoActionDraw AutoActionKind = "draw"
	AutoActionPass AutoActionKind = "pass"
)

// AutoAction is the move performed by AutoPlay.
type AutoAction struct {
	Kind     AutoActionKind
	PlayerID string
	Card     card.Card
}

// AutoPlay moves for the current player through the same paths as a real
// action. When no card is legal the player draws; when nothing can be drawn
// the turn passes.
func (m *Match) AutoPlay() (AutoAction, error) {
	if m.Status != StatusPlaying {
		return AutoAction{}, ErrIllegalMove
	}
	idx := m.Current
	p := m.Players[idx]

	if c, ok := m.autoPlay.SelectCard(m, idx); ok {
		var suit card.Suit
		if c.Rank == card.RankWild {
			suit = m.preferredSuit(idx, c)
		}
		if err := m.PlayCard(p.ID, c.ID, suit); err == nil {
			return AutoAction{Kind: AutoActionPlay, PlayerID: p.ID, Card: c}, nil
		}
	}

	if err := m.Draw(p.ID); err == nil {
		return AutoAction{Kind: AutoActionDraw, PlayerID: p.ID}, nil
	}

	m.nextTurn()
	m.Version++
	return AutoAction{Kind: AutoActionPass, PlayerID: p.ID}, nil
}

// preferredSuit is the suit the player holds most of, not counting the
// played wild. Ties go to enumeration order.
func (m *Match) preferredSuit(idx int, played card.Card) card.Suit {
	counts := make(map[card.Suit]int)
	for _, c := range m.Players[idx].hand {
		if c.ID != played.ID {
			counts[c.Suit]++
		}
	}
	best, bestN := played.Suit, 0
	for _, s := range card.Suits {
		if counts[s] > bestN {
			best, bestN = s, counts[s]
		}
	}
	return best
}
