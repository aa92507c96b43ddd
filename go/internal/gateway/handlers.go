package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/match"
	"github.com/mcdev12/duel/go/internal/matchmaking"
	"github.com/mcdev12/duel/go/internal/orchestrator"
	"github.com/mcdev12/duel/go/internal/rooms"
	"github.com/mcdev12/duel/go/internal/users"
)

var (
	errNotAuthenticated = errors.New("not authenticated")
	errHostGone         = errors.New("room host is no longer connected")
)

// handleMessage dispatches one inbound frame. Every action other than
// authenticate runs as the player bound to the connection.
func (s *Service) handleMessage(c *Connection, msg ClientMessage) {
	ctx, cancel := s.requestContext()
	defer cancel()

	var err error
	switch msg.Type {
	case TypeAuthenticate:
		err = s.authenticate(ctx, c, msg.Data)
	case TypeUpdateProfile:
		err = s.withPlayer(c, func(playerID string) error { return s.updateProfile(ctx, c, playerID, msg.Data) })
	case TypeFindMatch:
		err = s.withPlayer(c, func(playerID string) error { return s.findMatch(ctx, c, playerID) })
	case TypeCancelSearch:
		err = s.withPlayer(c, func(playerID string) error {
			s.queue.Remove(playerID)
			c.send(TypeSearchCancelled, NoticeData{Message: "Search cancelled"})
			return nil
		})
	case TypeCreateRoom:
		err = s.withPlayer(c, func(playerID string) error { return s.createRoom(ctx, c, playerID) })
	case TypeJoinRoom:
		err = s.withPlayer(c, func(playerID string) error { return s.joinRoom(ctx, c, playerID, msg.Data) })
	case TypeCancelRoom:
		err = s.withPlayer(c, func(playerID string) error { return s.cancelRoom(ctx, c, playerID, msg.Data) })
	case TypePlayCard:
		err = s.withPlayer(c, func(playerID string) error {
			var d PlayCardData
			if err := decode(msg.Data, &d); err != nil {
				return err
			}
			return s.matches.PlayCard(ctx, d.MatchID, playerID, d.CardID, d.Suit)
		})
	case TypeCounterDecision:
		err = s.withPlayer(c, func(playerID string) error {
			var d CounterDecisionData
			if err := decode(msg.Data, &d); err != nil {
				return err
			}
			return s.matches.Decide(ctx, d.MatchID, playerID, d.Counter, d.CardID)
		})
	case TypeDrawCard:
		err = s.withPlayer(c, func(playerID string) error {
			var d DrawCardData
			if err := decode(msg.Data, &d); err != nil {
				return err
			}
			return s.matches.DrawCard(ctx, d.MatchID, playerID)
		})
	default:
		err = errUnknownMessage
	}

	if err != nil {
		log.Debug().
			Err(err).
			Str("handle", c.Handle).
			Str("player_id", c.PlayerID()).
			Str("type", string(msg.Type)).
			Msg("message rejected")
		c.sendError(errorMessage(err))
	}
}

var (
	errUnknownMessage = errors.New("unknown message type")
	errMalformed      = errors.New("malformed message")
)

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errMalformed
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errMalformed
	}
	return nil
}

func (s *Service) withPlayer(c *Connection, fn func(playerID string) error) error {
	playerID := c.PlayerID()
	if playerID == "" {
		return errNotAuthenticated
	}
	return fn(playerID)
}

func (s *Service) authenticate(ctx context.Context, c *Connection, raw json.RawMessage) error {
	var d AuthenticateData
	if err := decode(raw, &d); err != nil {
		return err
	}
	p, err := s.profiles.FindOrCreate(ctx, d.VisitorID, d.Username)
	if err != nil {
		return err
	}

	s.conns.Bind(c, p.VisitorID)
	c.send(TypeProfileLoaded, p.Public())
	// A player reconnecting mid-match gets the match moved to this connection.
	s.matches.BindHandle(c.Handle, p.VisitorID)

	log.Info().
		Str("handle", c.Handle).
		Str("player_id", p.VisitorID).
		Msg("player authenticated")
	return nil
}

func (s *Service) updateProfile(ctx context.Context, c *Connection, playerID string, raw json.RawMessage) error {
	var req users.UpdateProfileRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	p, err := s.profiles.UpdateProfile(ctx, playerID, req)
	if err != nil {
		return err
	}
	c.send(TypeProfileUpdated, p.Public())
	return nil
}

func (s *Service) findMatch(ctx context.Context, c *Connection, playerID string) error {
	if s.matches.InLiveMatch(playerID) {
		return orchestrator.ErrPlayerInMatch
	}
	p, err := s.profiles.GetProfile(ctx, playerID)
	if err != nil {
		return err
	}

	pair, paired := s.queue.Enqueue(matchmaking.QueuedPlayer{
		PlayerID: playerID,
		Handle:   c.Handle,
		Username: p.Username,
		Avatar:   p.Avatar,
	})
	c.send(TypeQueueJoined, QueueJoinedData{QueueSize: s.queue.Size()})
	if !paired {
		return nil
	}

	_, err = s.matches.CreateMatch(ctx, orchestrator.Pairing{
		First:  seatFromQueue(pair.First),
		Second: seatFromQueue(pair.Second),
		Mode:   match.ModeRandom,
	})
	if err == nil {
		return nil
	}

	log.Warn().
		Err(err).
		Str("player_1", pair.First.PlayerID).
		Str("player_2", pair.Second.PlayerID).
		Msg("failed to start random match, requeueing")
	// Requeue in reverse so the older player stays at the head.
	for _, qp := range []matchmaking.QueuedPlayer{pair.Second, pair.First} {
		if s.matches.InLiveMatch(qp.PlayerID) {
			s.conns.SendToPlayer(qp.PlayerID, TypeError, NoticeData{Message: errorMessage(orchestrator.ErrPlayerInMatch)})
			continue
		}
		s.queue.Requeue(qp)
	}
	return nil
}

func seatFromQueue(qp matchmaking.QueuedPlayer) orchestrator.Seat {
	return orchestrator.Seat{
		PlayerID: qp.PlayerID,
		Handle:   qp.Handle,
		Username: qp.Username,
		Avatar:   qp.Avatar,
	}
}

func (s *Service) createRoom(ctx context.Context, c *Connection, playerID string) error {
	if s.matches.InLiveMatch(playerID) {
		return orchestrator.ErrPlayerInMatch
	}
	p, err := s.profiles.GetProfile(ctx, playerID)
	if err != nil {
		return err
	}
	room, err := s.rooms.Create(ctx, rooms.Participant{PlayerID: playerID, Handle: c.Handle})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.waitingRooms[c.Handle] = room.Code
	s.mu.Unlock()

	c.send(TypeRoomCreated, RoomData{
		Code:         room.Code,
		Status:       string(room.Status),
		HostUsername: p.Username,
		ExpiresAt:    room.ExpiresAt,
		ShareURL:     s.shareURL(room.Code),
	})
	return nil
}

func (s *Service) joinRoom(ctx context.Context, c *Connection, playerID string, raw json.RawMessage) error {
	var d JoinRoomData
	if err := decode(raw, &d); err != nil {
		return err
	}
	if s.matches.InLiveMatch(playerID) {
		return orchestrator.ErrPlayerInMatch
	}
	guest, err := s.profiles.GetProfile(ctx, playerID)
	if err != nil {
		return err
	}

	existing, err := s.rooms.Get(ctx, d.Code)
	if err != nil {
		return err
	}
	hostHandle, hostOnline := s.conns.HandleFor(existing.HostID)
	if existing.HostID != playerID && existing.Status == rooms.StatusWaiting && !hostOnline {
		return errHostGone
	}

	room, err := s.rooms.Join(ctx, d.Code, rooms.Participant{PlayerID: playerID, Handle: c.Handle})
	if err != nil {
		return err
	}
	c.send(TypeRoomJoined, RoomJoinedData{RoomCode: room.Code})

	s.mu.Lock()
	delete(s.waitingRooms, room.HostHandle)
	delete(s.waitingRooms, hostHandle)
	s.mu.Unlock()

	host, err := s.profiles.GetProfile(ctx, room.HostID)
	if err != nil {
		s.reopen(ctx, room.Code)
		return err
	}

	matchID, err := s.matches.CreateMatch(ctx, orchestrator.Pairing{
		First:    orchestrator.Seat{PlayerID: host.VisitorID, Handle: hostHandle, Username: host.Username, Avatar: host.Avatar},
		Second:   orchestrator.Seat{PlayerID: guest.VisitorID, Handle: c.Handle, Username: guest.Username, Avatar: guest.Avatar},
		Mode:     match.ModePrivate,
		RoomCode: room.Code,
	})
	if err != nil {
		s.reopen(ctx, room.Code)
		return err
	}
	if err := s.rooms.SetMatchID(ctx, room.Code, matchID); err != nil {
		log.Error().Err(err).Str("room_code", room.Code).Str("match_id", matchID).Msg("failed to link room to match")
	}
	return nil
}

func (s *Service) reopen(ctx context.Context, code string) {
	if err := s.rooms.Reopen(ctx, code); err != nil {
		log.Error().Err(err).Str("room_code", code).Msg("failed to reopen room")
	}
}

func (s *Service) cancelRoom(ctx context.Context, c *Connection, playerID string, raw json.RawMessage) error {
	var d CancelRoomData
	if err := decode(raw, &d); err != nil {
		return err
	}
	cancelled, err := s.rooms.Cancel(ctx, d.Code, playerID)
	if err != nil {
		return err
	}
	if !cancelled {
		return nil
	}

	s.mu.Lock()
	for h, code := range s.waitingRooms {
		if code == d.Code {
			delete(s.waitingRooms, h)
		}
	}
	s.mu.Unlock()

	c.send(TypeRoomCancelled, NoticeData{Message: "Room cancelled"})
	return nil
}

// errorMessage turns an error into the text sent to the client. Unexpected
// errors are logged and hidden.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, errNotAuthenticated):
		return "Please authenticate first"
	case errors.Is(err, errMalformed):
		return "Malformed message"
	case errors.Is(err, errUnknownMessage):
		return "Unknown message type"
	case errors.Is(err, errHostGone):
		return "The room host is no longer connected"
	case errors.Is(err, orchestrator.ErrPlayerInMatch):
		return "You are already in a match"
	case errors.Is(err, orchestrator.ErrInvalidPairing):
		return "Cannot start a match against yourself"
	case errors.Is(err, match.ErrMatchNotFound):
		return "Match not found"
	case errors.Is(err, match.ErrPlayerNotFound):
		return "You are not in this match"
	case errors.Is(err, match.ErrCardNotInHand):
		return "Card not in hand"
	case errors.Is(err, match.ErrIllegalMove):
		return "Illegal move"
	case errors.Is(err, match.ErrNotYourDecision):
		return "Not your decision"
	case errors.Is(err, match.ErrMissingCounterCard):
		return "Choose a card to counter with"
	case errors.Is(err, rooms.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, rooms.ErrOwnRoom):
		return "You cannot join your own room"
	case errors.Is(err, rooms.ErrRoomUnavailable):
		return "This room is no longer available"
	case errors.Is(err, rooms.ErrRoomExpired):
		return "The room link has expired"
	case errors.Is(err, users.ErrUserNotFound):
		return "Profile not found"
	default:
		log.Error().Err(err).Msg("unexpected gateway error")
		return "Internal error"
	}
}
