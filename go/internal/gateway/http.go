package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duel/go/internal/rooms"
)

// HealthResponse is served on /health
type HealthResponse struct {
	Status        string `json:"status"`
	ActiveMatches int    `json:"active_matches"`
	QueueSize     int    `json:"queue_size"`
	Connections   int    `json:"connections"`
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.conns.UpgradeConnection(w, r); err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	conns, _ := s.conns.Stats()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		ActiveMatches: s.matches.ActiveMatches(),
		QueueSize:     s.queue.Size(),
		Connections:   conns,
	})
}

func (s *Service) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	room, err := s.rooms.Get(r.Context(), code)
	if errors.Is(err, rooms.ErrRoomNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("room_code", code).Msg("failed to load room")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	hostName := "Player"
	if p, err := s.profiles.GetProfile(r.Context(), room.HostID); err == nil {
		hostName = p.Username
	}
	writeJSON(w, http.StatusOK, RoomData{
		Code:         room.Code,
		Status:       string(room.Status),
		HostUsername: hostName,
		ExpiresAt:    room.ExpiresAt,
	})
}

func (s *Service) handleActiveMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": s.matches.Summaries()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
