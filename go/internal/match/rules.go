package match

import (
	"fmt"

	"github.com/mcdev12/duel/go/internal/card"
)

// CanPlay reports whether the player in seat idx may play c now.
func (m *Match) CanPlay(idx int, c card.Card) bool {
	switch m.Status {
	case StatusWaitingForCounter:
		_, target := m.Pending.parties()
		return target == idx && c.Rank == m.Pending.CounterRank()
	case StatusPlaying:
		if m.Current != idx {
			return false
		}
		top, ok := m.Discard.Top()
		if !ok {
			return false
		}
		return c.Suit == m.ActiveSuit || c.Rank == top.Rank
	default:
		return false
	}
}

// HasAnyLegalMove reports whether the player holds at least one playable card.
func (m *Match) HasAnyLegalMove(playerID string) bool {
	idx, ok := m.PlayerIndex(playerID)
	if !ok {
		return false
	}
	for _, c := range m.Players[idx].hand {
		if m.CanPlay(idx, c) {
			return true
		}
	}
	return false
}

// PlayCard plays a card from the player's hand. suit is the chosen suit for a
// wild and is ignored otherwise.
func (m *Match) PlayCard(playerID, cardID string, suit card.Suit) error {
	idx, ok := m.PlayerIndex(playerID)
	if !ok {
		return ErrPlayerNotFound
	}
	p := m.Players[idx]
	c, ok := p.Card(cardID)
	if !ok {
		return ErrCardNotInHand
	}
	if !m.CanPlay(idx, c) {
		return fmt.Errorf("%w: %s cannot be played now", ErrIllegalMove, c)
	}
	if c.Rank == card.RankWild && !suit.Valid() {
		return fmt.Errorf("%w: wild requires a suit", ErrIllegalMove)
	}

	p.RemoveCard(cardID)
	m.Discard.Push(c)
	m.Version++

	if p.emptyHand() {
		m.endRound(idx)
		return nil
	}

	switch c.Rank {
	case card.RankBlock:
		m.playBlock(idx)
	case card.RankForcedDraw:
		m.playForcedDraw(idx)
	case card.RankWild:
		m.ActiveSuit = suit
		m.clearPending()
		m.nextTurn()
	default:
		m.ActiveSuit = c.Suit
		m.clearPending()
		m.nextTurn()
	}
	return nil
}

// Decide answers a pending effect. Countering plays cardID through the
// normal play path; declining resolves the effect at once.
func (m *Match) Decide(playerID string, counter bool, cardID string) error {
	idx, ok := m.PlayerIndex(playerID)
	if !ok {
		return ErrPlayerNotFound
	}
	if m.Status != StatusWaitingForCounter {
		return fmt.Errorf("%w: no effect awaiting a decision", ErrIllegalMove)
	}
	if _, target := m.Pending.parties(); target != idx {
		return ErrNotYourDecision
	}
	if counter {
		if cardID == "" {
			return ErrMissingCounterCard
		}
		return m.PlayCard(playerID, cardID, "")
	}
	m.resolvePending()
	m.Version++
	return nil
}

// Draw takes one card on the player's turn and passes the turn. A target
// facing a forced draw may call it to accept the draw instead of deciding.
func (m *Match) Draw(playerID string) error {
	idx, ok := m.PlayerIndex(playerID)
	if !ok {
		return ErrPlayerNotFound
	}

	if m.Status == StatusWaitingForCounter {
		fd, isDraw := m.Pending.(*ForcedDraw)
		if !isDraw || fd.Target != idx {
			return fmt.Errorf("%w: cannot draw while an effect is pending", ErrIllegalMove)
		}
		m.resolvePending()
		m.Version++
		return nil
	}

	if m.Status != StatusPlaying || m.Current != idx {
		return fmt.Errorf("%w: not your turn", ErrIllegalMove)
	}
	if !card.CanDraw(m.Deck, m.Discard) {
		return ErrEmptyDeck
	}
	c, err := card.Draw(&m.Deck, &m.Discard, m.rng)
	if err != nil {
		return err
	}
	m.Players[idx].AddCard(c)
	m.nextTurn()
	m.Version++
	return nil
}

// ExpireCounter resolves the pending effect once its deadline has passed.
// It reports whether anything changed.
func (m *Match) ExpireCounter() bool {
	if m.Status != StatusWaitingForCounter || m.Pending == nil {
		return false
	}
	if m.now().Before(m.Pending.deadline()) {
		return false
	}
	m.resolvePending()
	m.Version++
	return true
}

// Abandon ends the match in favour of the opponent of the leaving player.
// It reports whether the match changed.
func (m *Match) Abandon(playerID string) bool {
	idx, ok := m.PlayerIndex(playerID)
	if !ok || m.Status.Terminal() {
		return false
	}
	m.Status = StatusAbandoned
	m.MatchWinner = m.Players[opponent(idx)].ID
	m.Pending = nil
	m.TurnDeadline = zeroTime
	m.Version++
	return true
}

func (m *Match) playBlock(src int) {
	tgt := opponent(src)
	if m.Players[tgt].HasRank(card.RankBlock) {
		m.Pending = &Block{
			Source:          src,
			Target:          tgt,
			CounterDeadline: m.now().Add(m.rules.BlockWindow),
		}
		m.awaitCounter()
		return
	}
	m.resolveBlock(src)
}

func (m *Match) playForcedDraw(src int) {
	count := 2
	if fd, ok := m.Pending.(*ForcedDraw); ok {
		count = fd.DrawCount + 2
	}
	tgt := opponent(src)
	if m.Players[tgt].HasRank(card.RankForcedDraw) {
		m.Pending = &ForcedDraw{
			Source:          src,
			Target:          tgt,
			DrawCount:       count,
			CounterDeadline: m.now().Add(m.rules.ForcedDrawWindow),
		}
		m.awaitCounter()
		return
	}
	m.resolveForcedDraw(src, tgt, count)
}

func (m *Match) awaitCounter() {
	m.Status = StatusWaitingForCounter
	m.TurnDeadline = zeroTime
}

func (m *Match) resolvePending() {
	switch e := m.Pending.(type) {
	case *Block:
		m.resolveBlock(e.Source)
	case *ForcedDraw:
		m.resolveForcedDraw(e.Source, e.Target, e.DrawCount)
	}
}

func (m *Match) resolveBlock(src int) {
	m.returnTurnTo(src)
}

func (m *Match) resolveForcedDraw(src, tgt, count int) {
	for i := 0; i < count; i++ {
		c, err := card.Draw(&m.Deck, &m.Discard, m.rng)
		if err != nil {
			break
		}
		m.Players[tgt].AddCard(c)
	}
	m.returnTurnTo(src)
}

// returnTurnTo hands the turn back to the effect's source with the active
// suit taken from the discard top.
func (m *Match) returnTurnTo(src int) {
	if top, ok := m.Discard.Top(); ok {
		m.ActiveSuit = top.Suit
	}
	m.clearPending()
	m.Current = src
	m.TurnDeadline = m.now().Add(m.rules.TurnTimeout)
}

func (m *Match) clearPending() {
	m.Pending = nil
	m.Status = StatusPlaying
}

func (m *Match) nextTurn() {
	m.Current = opponent(m.Current)
	m.TurnDeadline = m.now().Add(m.rules.TurnTimeout)
}

func (m *Match) endRound(winner int) {
	m.Scores[winner]++
	m.RoundWinner = m.Players[winner].ID
	m.Pending = nil
	m.TurnDeadline = zeroTime
	if m.Scores[winner] >= m.rules.TargetScore {
		m.Status = StatusMatchOver
		m.MatchWinner = m.RoundWinner
		return
	}
	m.Status = StatusRoundOver
	m.Round++
}
