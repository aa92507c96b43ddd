package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event payload types shared by the orchestrator, the stats store and the
// outbox relay.

// EventType names an outcome event on the wire and in the outbox table.
type EventType string

const (
	EventTypeMatchStarted  EventType = "MatchStarted"
	EventTypeRoundFinished EventType = "RoundFinished"
	EventTypeMatchFinished EventType = "MatchFinished"
)

// PlayerResult is one player's tally at the time of the event.
type PlayerResult struct {
	PlayerID     string `json:"player_id"`
	RoundsWon    int    `json:"rounds_won"`
	RoundsPlayed int    `json:"rounds_played"`
	Won          bool   `json:"won"`
}

// MatchStartedPayload is the payload for a MatchStarted event
type MatchStartedPayload struct {
	MatchID   string    `json:"match_id"`
	Mode      string    `json:"mode"`
	RoomCode  string    `json:"room_code,omitempty"`
	PlayerIDs []string  `json:"player_ids"`
	StartedAt time.Time `json:"started_at"`
}

// RoundFinishedPayload is the payload for a RoundFinished event
type RoundFinishedPayload struct {
	MatchID     string         `json:"match_id"`
	RoundNumber int            `json:"round_number"`
	WinnerID    string         `json:"winner_id"`
	Players     []PlayerResult `json:"players"`
	FinishedAt  time.Time      `json:"finished_at"`
}

// MatchFinishedPayload is the payload for a MatchFinished event
type MatchFinishedPayload struct {
	MatchID    string         `json:"match_id"`
	WinnerID   string         `json:"winner_id"`
	Reason     string         `json:"reason"`
	Mode       string         `json:"mode"`
	RoomCode   string         `json:"room_code,omitempty"`
	Players    []PlayerResult `json:"players"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Abandoned reports whether the match ended by disconnection.
func (p MatchFinishedPayload) Abandoned() bool {
	return p.Reason == "opponent_disconnected"
}

// TotalRounds is the number of rounds completed in the match.
func (p MatchFinishedPayload) TotalRounds() int {
	n := 0
	for _, pl := range p.Players {
		n += pl.RoundsWon
	}
	return n
}

// DomainEvent is the envelope published for every outcome event.
type DomainEvent struct {
	EventID   string          `json:"event_id"`
	EventType EventType       `json:"event_type"`
	MatchID   string          `json:"match_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// ParsePayload decodes the envelope payload into its concrete type.
func ParsePayload(e DomainEvent) (interface{}, error) {
	switch e.EventType {
	case EventTypeMatchStarted:
		var p MatchStartedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventTypeRoundFinished:
		var p RoundFinishedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventTypeMatchFinished:
		var p MatchFinishedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.EventType)
	}
}
