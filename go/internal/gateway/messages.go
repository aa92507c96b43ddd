package gateway

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/duel/go/internal/match"
)

// MessageType names a websocket message in either direction
type MessageType string

// Client to server
const (
	TypeAuthenticate    MessageType = "authenticate"
	TypeUpdateProfile   MessageType = "update_profile"
	TypeFindMatch       MessageType = "find_match"
	TypeCancelSearch    MessageType = "cancel_search"
	TypeCreateRoom      MessageType = "create_room"
	TypeJoinRoom        MessageType = "join_room"
	TypeCancelRoom      MessageType = "cancel_room"
	TypePlayCard        MessageType = "play_card"
	TypeCounterDecision MessageType = "counter_decision"
	TypeDrawCard        MessageType = "draw_card"
)

// Server to client
const (
	TypeProfileLoaded        MessageType = "profile_loaded"
	TypeProfileUpdated       MessageType = "profile_updated"
	TypeQueueJoined          MessageType = "queue_joined"
	TypeSearchCancelled      MessageType = "search_cancelled"
	TypeMatchFound           MessageType = "match_found"
	TypeGameUpdate           MessageType = "game_update"
	TypeRoundOver            MessageType = "round_over"
	TypeRoundStart           MessageType = "round_start"
	TypeMatchOver            MessageType = "match_over"
	TypeOpponentDisconnected MessageType = "opponent_disconnected"
	TypeRoomCreated          MessageType = "room_created"
	TypeRoomJoined           MessageType = "room_joined"
	TypeRoomCancelled        MessageType = "room_cancelled"
	TypeError                MessageType = "error"
)

// ClientMessage is an inbound frame. Data is decoded per Type.
type ClientMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is an outbound frame.
type ServerMessage struct {
	Type MessageType `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type AuthenticateData struct {
	VisitorID string `json:"visitor_id"`
	Username  string `json:"username,omitempty"`
}

type JoinRoomData struct {
	Code string `json:"code"`
}

type CancelRoomData struct {
	Code string `json:"code"`
}

// PlayCardData plays a card. Suit is required for a wild.
type PlayCardData struct {
	MatchID string `json:"match_id"`
	CardID  string `json:"card_id"`
	Suit    string `json:"suit,omitempty"`
}

type CounterDecisionData struct {
	MatchID string `json:"match_id"`
	Counter bool   `json:"counter"`
	CardID  string `json:"card_id,omitempty"`
}

type DrawCardData struct {
	MatchID string `json:"match_id"`
}

type QueueJoinedData struct {
	QueueSize int `json:"queue_size"`
}

type MatchFoundData struct {
	MatchID    string         `json:"match_id"`
	OpponentID string         `json:"opponent_id"`
	State      match.Snapshot `json:"state"`
}

type RoundStartData struct {
	RoundNumber int `json:"round_number"`
}

type RoomData struct {
	Code         string    `json:"code"`
	Status       string    `json:"status"`
	HostUsername string    `json:"host_username"`
	ExpiresAt    time.Time `json:"expires_at"`
	ShareURL     string    `json:"share_url,omitempty"`
}

type RoomJoinedData struct {
	RoomCode string `json:"room_code"`
}

type NoticeData struct {
	Message string `json:"message"`
}
