package card

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeck(t *testing.T) {
	deck := BuildDeck()
	require.Len(t, deck, DeckSize)

	ids := make(map[string]bool)
	pairs := make(map[Card]bool)
	for _, c := range deck {
		assert.False(t, ids[c.ID], "duplicate id %s", c.ID)
		ids[c.ID] = true
		key := Card{Suit: c.Suit, Rank: c.Rank}
		assert.False(t, pairs[key], "duplicate card %s", c)
		pairs[key] = true
		assert.True(t, c.Suit.Valid())
		assert.NotEqual(t, Rank(8), c.Rank)
		assert.NotEqual(t, Rank(9), c.Rank)
	}

	assert.Equal(t, SuitCoins, deck[0].Suit)
	assert.Equal(t, Rank(1), deck[0].Rank)
	assert.Equal(t, SuitClubs, deck[DeckSize-1].Suit)
	assert.Equal(t, Rank(12), deck[DeckSize-1].Rank)
}

func TestShuffleIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 2, 3, 10, 40} {
		cards := BuildDeck()[:n]
		before := make(map[string]int)
		for _, c := range cards {
			before[c.ID]++
		}

		Shuffle(cards, rng)

		require.Len(t, cards, n)
		after := make(map[string]int)
		for _, c := range cards {
			after[c.ID]++
		}
		assert.Equal(t, before, after, "n=%d", n)
	}
}

func TestShuffleIsUnbiased(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := BuildDeck()[:3]
	counts := make(map[string]int)
	const rounds = 60000
	for i := 0; i < rounds; i++ {
		cards := append(Pile(nil), base...)
		Shuffle(cards, rng)
		counts[cards[0].ID+cards[1].ID+cards[2].ID]++
	}

	require.Len(t, counts, 6)
	for perm, n := range counts {
		assert.InDelta(t, rounds/6, n, rounds/60, "permutation %s", perm)
	}
}

func TestPilePopAndTop(t *testing.T) {
	var p Pile
	_, ok := p.Top()
	assert.False(t, ok)

	_, err := p.Pop()
	assert.ErrorIs(t, err, ErrEmptyDeck)

	a, b := New(SuitCups, 3), New(SuitCups, 4)
	p.Push(a)
	p.Push(b)

	top, ok := p.Top()
	require.True(t, ok)
	assert.Equal(t, b, top)

	got, err := p.Pop()
	require.NoError(t, err)
	assert.Equal(t, b, got)
	assert.Equal(t, 1, p.Len())
}

func TestRecycle(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("keeps top discard", func(t *testing.T) {
		discard := BuildDeck()[:6]
		top := discard[5]
		var deck Pile

		require.True(t, Recycle(&deck, &discard, rng))
		assert.Equal(t, Pile{top}, discard)
		assert.Len(t, deck, 5)
		for _, c := range deck {
			assert.NotEqual(t, top.ID, c.ID)
		}
	})

	t.Run("no-op when deck has cards", func(t *testing.T) {
		deck := BuildDeck()[:1]
		discard := BuildDeck()[1:5]
		assert.False(t, Recycle(&deck, &discard, rng))
		assert.Len(t, deck, 1)
		assert.Len(t, discard, 4)
	})

	t.Run("no-op with single discard", func(t *testing.T) {
		var deck Pile
		discard := BuildDeck()[:1]
		assert.False(t, Recycle(&deck, &discard, rng))
		assert.False(t, CanDraw(deck, discard))

		_, err := Draw(&deck, &discard, rng)
		assert.ErrorIs(t, err, ErrEmptyDeck)
	})
}

func TestDrawRecyclesWhenEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var deck Pile
	discard := BuildDeck()[:3]

	require.True(t, CanDraw(deck, discard))
	c, err := Draw(&deck, &discard, rng)
	require.NoError(t, err)
	assert.NotEqual(t, discard[0].ID, c.ID)
	assert.Equal(t, 1, deck.Len())
	assert.Equal(t, 1, discard.Len())
}
