package match

import (
	"errors"

	"github.com/mcdev12/duel/go/internal/card"
)

// Rejected actions leave the match untouched and return one of these.
var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrCardNotInHand      = errors.New("card not in hand")
	ErrIllegalMove        = errors.New("illegal move")
	ErrNotYourDecision    = errors.New("not your decision")
	ErrMissingCounterCard = errors.New("missing counter card")
	ErrEmptyDeck          = card.ErrEmptyDeck
)
