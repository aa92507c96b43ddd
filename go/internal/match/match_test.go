package match

import (
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/duel/go/internal/card"
)

type sr struct {
	suit card.Suit
	rank card.Rank
}

// newTestMatch returns a fresh match between "alice" and "bob" on a fake clock.
func newTestMatch(t *testing.T, seed int64) (*Match, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	m := New("m1",
		NewPlayer("alice", "h-alice", "Alice", ""),
		NewPlayer("bob", "h-bob", "Bob", ""),
		Config{Clock: clock, Rand: rand.New(rand.NewSource(seed))},
	)
	return m, clock
}

// rig replaces the dealt round with known hands and discard top. Every
// other card goes to the deck so the card count stays at 40.
func rig(t *testing.T, m *Match, top sr, alice, bob []sr) map[sr]card.Card {
	t.Helper()
	deck := card.BuildDeck()
	byKey := make(map[sr]card.Card)
	take := func(k sr) card.Card {
		for i, c := range deck {
			if c.Suit == k.suit && c.Rank == k.rank {
				deck = append(deck[:i], deck[i+1:]...)
				byKey[k] = c
				return c
			}
		}
		t.Fatalf("card %v not in deck", k)
		return card.Card{}
	}

	for _, p := range m.Players {
		p.ClearHand()
	}
	for _, k := range alice {
		m.Players[0].AddCard(take(k))
	}
	for _, k := range bob {
		m.Players[1].AddCard(take(k))
	}
	topCard := take(top)
	m.Discard = card.Pile{topCard}
	m.Deck = deck
	m.ActiveSuit = topCard.Suit
	m.Current = 0
	m.Pending = nil
	m.Status = StatusPlaying
	m.TurnDeadline = m.now().Add(m.rules.TurnTimeout)
	require.Equal(t, card.DeckSize, m.CardCount())
	return byKey
}

func TestStartRound(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		m, _ := newTestMatch(t, seed)
		require.NoError(t, m.StartRound())

		assert.Equal(t, StatusPlaying, m.Status)
		assert.Equal(t, card.DeckSize, m.CardCount())
		assert.Equal(t, handSize, m.Players[0].HandSize())
		assert.Equal(t, handSize, m.Players[1].HandSize())
		require.Equal(t, 1, m.Discard.Len())

		top, _ := m.TopCard()
		assert.False(t, top.Rank.IsSpecial(), "seed %d opened with %s", seed, top)
		assert.Equal(t, top.Suit, m.ActiveSuit)
		assert.Equal(t, 0, m.Current)
		assert.Nil(t, m.Pending)
	}
}

func TestStartRoundAlternatesStarter(t *testing.T) {
	m, clock := newTestMatch(t, 1)
	require.NoError(t, m.StartRound())
	assert.Equal(t, 0, m.Current)
	assert.Equal(t, clock.Now().Add(30*time.Second), m.TurnDeadline)

	m.endRound(0)
	require.Equal(t, StatusRoundOver, m.Status)
	require.NoError(t, m.StartRound())
	assert.Equal(t, 1, m.Current)
	assert.Equal(t, 2, m.Round)
	assert.Empty(t, m.RoundWinner)

	m.endRound(1)
	require.NoError(t, m.StartRound())
	assert.Equal(t, 0, m.Current)
}

func TestStartRoundRejectedMidRound(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	require.NoError(t, m.StartRound())
	assert.ErrorIs(t, m.StartRound(), ErrIllegalMove)
}

func TestLegalMoves(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitSwords, 5}, {card.SuitCoins, 3}, {card.SuitClubs, 6}},
		[]sr{{card.SuitCups, 5}},
	)

	assert.True(t, m.CanPlay(0, cards[sr{card.SuitSwords, 5}]), "rank match")
	assert.True(t, m.CanPlay(0, cards[sr{card.SuitCoins, 3}]), "suit match")
	assert.False(t, m.CanPlay(0, cards[sr{card.SuitClubs, 6}]))
	assert.False(t, m.CanPlay(1, cards[sr{card.SuitCups, 5}]), "not bob's turn")
	assert.True(t, m.HasAnyLegalMove("alice"))
	assert.False(t, m.HasAnyLegalMove("bob"))
	assert.False(t, m.HasAnyLegalMove("carol"))
}

func TestPlayCardRejections(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitClubs, 6}, {card.SuitCoins, 7}, {card.SuitCoins, 4}},
		[]sr{{card.SuitCups, 5}},
	)
	before := m.Version

	assert.ErrorIs(t, m.PlayCard("carol", "x", ""), ErrPlayerNotFound)
	assert.ErrorIs(t, m.PlayCard("alice", cards[sr{card.SuitCups, 5}].ID, ""), ErrCardNotInHand)
	assert.ErrorIs(t, m.PlayCard("alice", cards[sr{card.SuitClubs, 6}].ID, ""), ErrIllegalMove)
	assert.ErrorIs(t, m.PlayCard("bob", cards[sr{card.SuitCups, 5}].ID, ""), ErrIllegalMove)
	assert.ErrorIs(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 7}].ID, ""), ErrIllegalMove, "wild without suit")

	assert.Equal(t, before, m.Version)
	assert.Equal(t, 3, m.Players[0].HandSize())
	assert.Equal(t, 1, m.Discard.Len())
}

func TestPlainCardAdvancesTurn(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitSwords, 5}, {card.SuitCoins, 3}},
		[]sr{{card.SuitCups, 4}},
	)

	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitSwords, 5}].ID, ""))
	assert.Equal(t, card.SuitSwords, m.ActiveSuit)
	assert.Equal(t, 1, m.Current)
	assert.Equal(t, StatusPlaying, m.Status)
	assert.Equal(t, card.DeckSize, m.CardCount())
}

func TestWildSetsChosenSuit(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 7}, {card.SuitCoins, 3}},
		[]sr{{card.SuitCups, 4}},
	)

	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 7}].ID, card.SuitCups))
	assert.Equal(t, card.SuitCups, m.ActiveSuit)
	assert.Equal(t, 1, m.Current)
	assert.True(t, m.CanPlay(1, cards[sr{card.SuitCups, 4}]))
}

func TestBlockCounterDeclined(t *testing.T) {
	m, clock := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 1}, {card.SuitCups, 3}},
		[]sr{{card.SuitSwords, 1}, {card.SuitClubs, 4}},
	)

	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 1}].ID, ""))
	require.Equal(t, StatusWaitingForCounter, m.Status)
	block, ok := m.Pending.(*Block)
	require.True(t, ok)
	assert.Equal(t, 0, block.Source)
	assert.Equal(t, 1, block.Target)
	assert.Equal(t, clock.Now().Add(10*time.Second), block.CounterDeadline)

	snap, err := m.Snapshot("bob")
	require.NoError(t, err)
	require.NotNil(t, snap.PendingEffect)
	assert.True(t, snap.PendingEffect.CanYouCounter)
	assert.True(t, snap.PendingEffect.MustYouDecide)

	aliceSnap, err := m.Snapshot("alice")
	require.NoError(t, err)
	assert.False(t, aliceSnap.PendingEffect.CanYouCounter)
	assert.False(t, aliceSnap.PendingEffect.MustYouDecide)

	assert.ErrorIs(t, m.Decide("alice", false, ""), ErrNotYourDecision)
	require.NoError(t, m.Decide("bob", false, ""))

	assert.Equal(t, StatusPlaying, m.Status)
	assert.Equal(t, 0, m.Current, "block returns the turn to its source")
	assert.Equal(t, card.SuitCoins, m.ActiveSuit)
	assert.Nil(t, m.Pending)
	assert.Equal(t, card.DeckSize, m.CardCount())
}

func TestBlockWithoutCounterResolvesImmediately(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 1}, {card.SuitCups, 3}},
		[]sr{{card.SuitClubs, 4}},
	)

	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 1}].ID, ""))
	assert.Equal(t, StatusPlaying, m.Status)
	assert.Equal(t, 0, m.Current)
	assert.Nil(t, m.Pending)
}

func TestBlockCounteredRearmsOneHop(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 1}, {card.SuitCups, 1}, {card.SuitCups, 3}},
		[]sr{{card.SuitSwords, 1}, {card.SuitClubs, 1}, {card.SuitClubs, 4}},
	)

	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 1}].ID, ""))
	require.NoError(t, m.Decide("bob", true, cards[sr{card.SuitSwords, 1}].ID))

	require.Equal(t, StatusWaitingForCounter, m.Status)
	block := m.Pending.(*Block)
	assert.Equal(t, 1, block.Source)
	assert.Equal(t, 0, block.Target)

	require.NoError(t, m.Decide("alice", false, ""))
	assert.Equal(t, 1, m.Current)
	assert.Equal(t, card.SuitSwords, m.ActiveSuit)
}

func TestCounterRejections(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 1}, {card.SuitCups, 3}},
		[]sr{{card.SuitSwords, 1}, {card.SuitCoins, 4}, {card.SuitSwords, 2}},
	)
	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 1}].ID, ""))
	before := m.Version

	assert.ErrorIs(t, m.Decide("bob", true, ""), ErrMissingCounterCard)
	assert.ErrorIs(t, m.Decide("bob", true, cards[sr{card.SuitCoins, 4}].ID), ErrIllegalMove)
	assert.ErrorIs(t, m.Decide("bob", true, cards[sr{card.SuitSwords, 2}].ID), ErrIllegalMove)
	assert.ErrorIs(t, m.PlayCard("alice", cards[sr{card.SuitCups, 3}].ID, ""), ErrIllegalMove)
	assert.ErrorIs(t, m.Draw("bob"), ErrIllegalMove, "a block cannot be answered with a draw")
	assert.ErrorIs(t, m.Decide("carol", false, ""), ErrPlayerNotFound)

	assert.Equal(t, before, m.Version)
	assert.Equal(t, StatusWaitingForCounter, m.Status)
}

func TestForcedDrawWithoutCounter(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 2}, {card.SuitCups, 3}},
		[]sr{{card.SuitClubs, 4}},
	)

	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 2}].ID, ""))
	assert.Equal(t, StatusPlaying, m.Status)
	assert.Equal(t, 3, m.Players[1].HandSize(), "bob draws two")
	assert.Equal(t, 0, m.Current, "bob does not act")
	assert.Equal(t, card.SuitCoins, m.ActiveSuit)
	assert.Equal(t, card.DeckSize, m.CardCount())
}

func TestForcedDrawStacking(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 2}, {card.SuitCups, 2}, {card.SuitCups, 3}},
		[]sr{{card.SuitSwords, 2}, {card.SuitClubs, 2}, {card.SuitClubs, 4}},
	)

	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 2}].ID, ""))
	fd := m.Pending.(*ForcedDraw)
	assert.Equal(t, 2, fd.DrawCount)
	assert.Equal(t, 1, fd.Target)

	require.NoError(t, m.Decide("bob", true, cards[sr{card.SuitSwords, 2}].ID))
	fd = m.Pending.(*ForcedDraw)
	assert.Equal(t, 4, fd.DrawCount)
	assert.Equal(t, 0, fd.Target)

	require.NoError(t, m.Decide("alice", true, cards[sr{card.SuitCups, 2}].ID))
	fd = m.Pending.(*ForcedDraw)
	assert.Equal(t, 6, fd.DrawCount)
	assert.Equal(t, 1, fd.Target)
	assert.Equal(t, 0, fd.Source)

	snap, err := m.Snapshot("bob")
	require.NoError(t, err)
	assert.Equal(t, 6, snap.PendingEffect.DrawCount)

	bobBefore := m.Players[1].HandSize()
	require.NoError(t, m.Decide("bob", false, ""))
	assert.Equal(t, bobBefore+6, m.Players[1].HandSize())
	assert.Equal(t, 0, m.Current)
	assert.Equal(t, StatusPlaying, m.Status)
	assert.Equal(t, card.DeckSize, m.CardCount())
}

func TestForcedDrawAcceptedByDrawing(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 2}, {card.SuitCups, 3}},
		[]sr{{card.SuitSwords, 2}},
	)
	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 2}].ID, ""))

	require.NoError(t, m.Draw("bob"))
	assert.Equal(t, 3, m.Players[1].HandSize())
	assert.Equal(t, 0, m.Current)
}

func TestExpireCounter(t *testing.T) {
	m, clock := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 2}, {card.SuitCups, 3}},
		[]sr{{card.SuitSwords, 2}},
	)
	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 2}].ID, ""))

	clock.Advance(14 * time.Second)
	assert.False(t, m.ExpireCounter())
	assert.Equal(t, StatusWaitingForCounter, m.Status)

	clock.Advance(time.Second)
	assert.True(t, m.ExpireCounter())
	assert.Equal(t, 3, m.Players[1].HandSize())
	assert.Equal(t, 0, m.Current)
	assert.False(t, m.ExpireCounter())
}

func TestEmptyHandEndsRound(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitCoins, 2}},
		[]sr{{card.SuitSwords, 2}},
	)

	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 2}].ID, ""))
	assert.Equal(t, StatusRoundOver, m.Status)
	assert.Nil(t, m.Pending, "going out beats re-arming the effect")
	assert.Equal(t, [2]int{1, 0}, m.Scores)
	assert.Equal(t, "alice", m.RoundWinner)
	assert.Equal(t, 2, m.Round)
	assert.True(t, m.TurnDeadline.IsZero())

	res, err := m.RoundResultFor("bob")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RoundNumber)
	assert.False(t, res.IsWinner)
	assert.Equal(t, 1, res.OpponentScore)
}

func TestTargetScoreEndsMatch(t *testing.T) {
	tests := []struct {
		name       string
		scoreFirst int
		want       Status
	}{
		{name: "score four continues", scoreFirst: 3, want: StatusRoundOver},
		{name: "score five wins", scoreFirst: 4, want: StatusMatchOver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMatch(t, 1)
			cards := rig(t, m, sr{card.SuitCoins, 5},
				[]sr{{card.SuitCoins, 3}},
				[]sr{{card.SuitSwords, 2}},
			)
			m.Scores[0] = tt.scoreFirst

			require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 3}].ID, ""))
			assert.Equal(t, tt.want, m.Status)
			if tt.want == StatusMatchOver {
				assert.Equal(t, "alice", m.MatchWinner)
				assert.ErrorIs(t, m.StartRound(), ErrIllegalMove)

				res, err := m.MatchResultFor("alice")
				require.NoError(t, err)
				assert.True(t, res.IsWinner)
				assert.Equal(t, ReasonMatchWon, res.Reason)
				assert.Equal(t, 5, res.YourScore)
			} else {
				assert.Empty(t, m.MatchWinner)
			}
		})
	}
}

func TestDraw(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitClubs, 6}},
		[]sr{{card.SuitCups, 4}},
	)

	assert.ErrorIs(t, m.Draw("bob"), ErrIllegalMove)
	require.NoError(t, m.Draw("alice"))
	assert.Equal(t, 2, m.Players[0].HandSize())
	assert.Equal(t, 1, m.Current)
	assert.Equal(t, card.DeckSize, m.CardCount())
}

func TestDrawRecyclesDiscard(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	rig(t, m, sr{card.SuitCoins, 5},
		[]sr{{card.SuitClubs, 6}},
		[]sr{{card.SuitCups, 4}},
	)
	for m.Deck.Len() > 0 {
		c, _ := m.Deck.Pop()
		m.Discard = append(card.Pile{c}, m.Discard...)
	}
	top, _ := m.TopCard()

	require.NoError(t, m.Draw("alice"))
	newTop, _ := m.TopCard()
	assert.Equal(t, top.ID, newTop.ID)
	assert.Equal(t, 1, m.Discard.Len())
	assert.Equal(t, card.DeckSize, m.CardCount())
}

func TestDrawFromExhaustedDeck(t *testing.T) {
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

	assert.ErrorIs(t, m.Draw("alice"), ErrEmptyDeck)
	assert.Equal(t, before, m.Version)
	assert.Equal(t, 0, m.Current)
}

func TestAbandon(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	require.NoError(t, m.StartRound())

	assert.False(t, m.Abandon("carol"))
	require.True(t, m.Abandon("alice"))
	assert.Equal(t, StatusAbandoned, m.Status)
	assert.Equal(t, "bob", m.MatchWinner)
	assert.True(t, m.TurnDeadline.IsZero())
	assert.False(t, m.Abandon("bob"), "abandonment is terminal")

	res, err := m.MatchResultFor("bob")
	require.NoError(t, err)
	assert.True(t, res.IsWinner)
	assert.Equal(t, ReasonOpponentDisconnected, res.Reason)
}

func TestAbandonIgnoredAfterMatchOver(t *testing.T) {
	m, _ := newTestMatch(t, 1)
	cards := rig(t, m, sr{card.SuitCoins, 5}, []sr{{card.SuitCoins, 3}}, []sr{{card.SuitCups, 4}})
	m.Scores[0] = 4
	require.NoError(t, m.PlayCard("alice", cards[sr{card.SuitCoins, 3}].ID, ""))
	require.Equal(t, StatusMatchOver, m.Status)

	assert.False(t, m.Abandon("bob"))
	assert.Equal(t, StatusMatchOver, m.Status)
	assert.Equal(t, "alice", m.MatchWinner)
}

func TestCardCountInvariantAcrossMatch(t *testing.T) {
	m, clock := newTestMatch(t, 99)
	require.NoError(t, m.StartRound())

	for step := 0; step < 20000 && !m.Status.Terminal(); step++ {
		switch m.Status {
		case StatusPlaying:
			_, err := m.AutoPlay()
			require.NoError(t, err)
		case StatusWaitingForCounter:
			_, target := m.Pending.parties()
			tp := m.Players[target]
			if step%2 == 0 && m.HasAnyLegalMove(tp.ID) {
				for _, c := range tp.Hand() {
					if m.CanPlay(target, c) {
						require.NoError(t, m.Decide(tp.ID, true, c.ID))
						break
					}
				}
			} else {
				clock.Advance(15 * time.Second)
				require.True(t, m.ExpireCounter())
			}
		case StatusRoundOver:
			require.NoError(t, m.StartRound())
		}

		if m.Status != StatusRoundOver && !m.Status.Terminal() {
			require.Equal(t, card.DeckSize, m.CardCount(), "step %d", step)
			top, _ := m.TopCard()
			require.NotEmpty(t, top.ID)
		}
	}
}
