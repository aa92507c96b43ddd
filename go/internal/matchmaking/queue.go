package matchmaking

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// QueuedPlayer is a player waiting for a random opponent.
type QueuedPlayer struct {
	PlayerID string
	Handle   string
	Username string
	Avatar   string
	JoinedAt time.Time
}

// Pair is two players taken from the head of the queue, oldest first.
type Pair struct {
	First  QueuedPlayer
	Second QueuedPlayer
}

// Queue is a FIFO of players waiting for a random match. It is safe for
// concurrent use.
type Queue struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	waiting []QueuedPlayer
}

// NewQueue creates an empty queue.
func NewQueue(clock clockwork.Clock) *Queue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Queue{clock: clock}
}

// Enqueue adds a player to the back of the queue, replacing any earlier entry
// for the same player. When two or more players wait, the two oldest are
// removed and returned.
func (q *Queue) Enqueue(p QueuedPlayer) (Pair, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(func(e QueuedPlayer) bool { return e.PlayerID == p.PlayerID })
	p.JoinedAt = q.clock.Now()
	q.waiting = append(q.waiting, p)

	log.Debug().
		Str("player_id", p.PlayerID).
		Int("queue_size", len(q.waiting)).
		Msg("player queued")

	if len(q.waiting) < 2 {
		return Pair{}, false
	}
	pair := Pair{First: q.waiting[0], Second: q.waiting[1]}
	q.waiting = append(q.waiting[:0:0], q.waiting[2:]...)

	log.Info().
		Str("player_1", pair.First.PlayerID).
		Str("player_2", pair.Second.PlayerID).
		Msg("random match found")
	return pair, true
}

// Requeue puts a player back at the head of the queue, used when a pairing
// could not be turned into a match.
func (q *Queue) Requeue(p QueuedPlayer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(func(e QueuedPlayer) bool { return e.PlayerID == p.PlayerID })
	q.waiting = append([]QueuedPlayer{p}, q.waiting...)
}

// Remove drops a player from the queue. It reports whether they were queued.
func (q *Queue) Remove(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(func(e QueuedPlayer) bool { return e.PlayerID == playerID })
}

// RemoveByHandle drops whichever player queued through handle.
func (q *Queue) RemoveByHandle(handle string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(func(e QueuedPlayer) bool { return e.Handle == handle })
}

// Contains reports whether the player is waiting.
func (q *Queue) Contains(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.waiting {
		if e.PlayerID == playerID {
			return true
		}
	}
	return false
}

// Size is the number of waiting players.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func (q *Queue) removeLocked(match func(QueuedPlayer) bool) bool {
	for i, e := range q.waiting {
		if match(e) {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			log.Debug().
				Str("player_id", e.PlayerID).
				Int("queue_size", len(q.waiting)).
				Msg("player left queue")
			return true
		}
	}
	return false
}
