package match

import (
	"time"

	"github.com/mcdev12/duel/go/internal/card"
)

// EffectKind names a pending effect on the wire.
type EffectKind string

const (
	EffectBlock      EffectKind = "block"
	EffectForcedDraw EffectKind = "forced_draw"
)

// Effect is a counterable effect awaiting the target's decision. The
// implementations are Block and ForcedDraw; a nil Effect means none.
type Effect interface {
	Kind() EffectKind
	// CounterRank is the only rank the target may answer with.
	CounterRank() card.Rank
	parties() (source, target int)
	deadline() time.Time
}

// Block skips the target's turn and hands play back to the source.
type Block struct {
	Source          int
	Target          int
	CounterDeadline time.Time
}

func (*Block) Kind() EffectKind                { return EffectBlock }
func (*Block) CounterRank() card.Rank          { return card.RankBlock }
func (b *Block) parties() (source, target int) { return b.Source, b.Target }
func (b *Block) deadline() time.Time           { return b.CounterDeadline }

// ForcedDraw makes the target draw DrawCount cards. Countering stacks the
// count by two.
type ForcedDraw struct {
	Source          int
	Target          int
	DrawCount       int
	CounterDeadline time.Time
}

func (*ForcedDraw) Kind() EffectKind                { return EffectForcedDraw }
func (*ForcedDraw) CounterRank() card.Rank          { return card.RankForcedDraw }
func (f *ForcedDraw) parties() (source, target int) { return f.Source, f.Target }
func (f *ForcedDraw) deadline() time.Time           { return f.CounterDeadline }
