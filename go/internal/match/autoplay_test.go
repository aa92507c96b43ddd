package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/duel/go/internal/card"
)

func TestAutoPlayPrefersPlainCard(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 7}, {card.SuitCoins, 4}, {card.SuitCups, 3}},
		[]sr{{card.SuitCups, 4}},
	)

	action, err := m.AutoPlay()
	require.NoError(t, err)
	assert.Equal(t, AutoActionPlay, action.Kind)
	assert.Equal(t, "alice", action.PlayerID)
	assert.Equal(t, cards[sr{card.SuitCoins, 4}].ID, action.Card.ID)
	assert.Equal(t, 1, m.Current)
}

func TestAutoPlayFallsBackToSpecial(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitClubs, 6}, {card.SuitCoins, 7}, {card.SuitCups, 3}, {card.SuitCups, 4}},
		[]sr{{card.SuitSwords, 4}},
	)

	action, err := m.AutoPlay()
	require.NoError(t, err)
	assert.Equal(t, cards[sr{card.SuitCoins, 7}].ID, action.Card.ID)
	assert.Equal(t, card.SuitCups, m.ActiveSuit, "wild picks the most held suit")
}

func TestAutoPlayDrawsWithoutLegalCard(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitClubs, 6}},
		[]sr{{card.SuitCups, 4}},
	)

	action, err := m.AutoPlay()
	require.NoError(t, err)
	assert.Equal(t, AutoActionDraw, action.Kind)
	assert.Equal(t, 2, m.Players[0].HandSize())
	assert.Equal(t, 1, m.Current)
}

func TestAutoPlayPassesOnExhaustedDeck(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitClubs, 6}},
		[]sr{{card.SuitCups, 4}},
	)
	for m.Deck.Len() > 0 {
		c, _ := m.Deck.Pop()
		m.Players[1].AddCard(c)
	}
	before := m.Version

	action, err := m.AutoPlay()
	require.NoError(t, err)
	assert.Equal(t, AutoActionPass, action.Kind)
	assert.Equal(t, 1, m.Current)
	assert.Greater(t, m.Version, before)
}

func TestAutoPlayOnlyWhilePlaying(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	_, err := m.AutoPlay()
	assert.ErrorIs(t, err, ErrIllegalMove)
}

type firstLegalStrategy struct{}

func (firstLegalStrategy) SelectCard(m *Match, idx int) (card.Card, bool) {
	for _, c := range m.Players[idx].Hand() {
		if m.CanPlay(idx, c) {
			return c, true
		}
	}
	return card.Card{}, false
}

func TestAutoPlayCustomStrategy(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	m.autoPlay = firstLegalStrategy{}
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 1}, {card.SuitCoins, 4}},
		[]sr{{card.SuitCups, 4}},
	)

	action, err := m.AutoPlay()
	require.NoError(t, err)
	assert.Equal(t, cards[sr{card.SuitCoins, 1}].ID, action.Card.ID)
	assert.Equal(t, 0, m.Current, "block returns the turn")
}
