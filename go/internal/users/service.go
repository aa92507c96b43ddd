package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// ProfilesApp defines what the HTTP service needs from the users application
type ProfilesApp interface {
	GetProfile(ctx context.Context, visitorID string) (*Profile, error)
	Leaderboard(ctx context.Context, limit int) ([]PublicProfile, error)
}

// Service exposes profiles over HTTP
type Service struct {
	app ProfilesApp
}

// NewService creates a new profiles HTTP service
func NewService(app ProfilesApp) *Service {
	return &Service{
		app: app,
	}
}

// RegisterRoutes registers the profile routes
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/avatars", s.GetAvatars).Methods(http.MethodGet)
	r.HandleFunc("/api/leaderboard", s.GetLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/api/profile/{visitorId}", s.GetProfile).Methods(http.MethodGet)
}

// GetAvatars lists the selectable avatars
func (s *Service) GetAvatars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"avatars": Avatars})
}

// GetLeaderboard lists the top players. ?limit= overrides the default size.
func (s *Service) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	board, err := s.app.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard request failed")
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": board})
}

// GetProfile returns the public profile of a visitor
func (s *Service) GetProfile(w http.ResponseWriter, r *http.Request) {
	visitorID := mux.Vars(r)["visitorId"]
	p, err := s.app.GetProfile(r.Context(), visitorID)
	if errors.Is(err, ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("visitor_id", visitorID).Msg("profile request failed")
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, p.Public())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
