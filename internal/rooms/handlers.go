package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/auth"
	"github.com/mcdev12/trivia/internal/models"
)

// GameReader is the part of the game layer exposed over REST.
type GameReader interface {
	GetGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error)
	RemainingTime(ctx context.Context, gameID uuid.UUID) (time.Duration, error)
	SubmitAnswer(ctx context.Context, actor models.Identity, gameID uuid.UUID, answer string) error
}

// Handlers exposes the room lifecycle as a REST surface. Each route maps 1:1
// to an App operation.
type Handlers struct {
	app  *App
	game GameReader
}

// NewHandlers creates the REST handlers for the room lifecycle.
func NewHandlers(app *App, game GameReader) *Handlers {
	return &Handlers{app: app, game: game}
}

// Register mounts the room and game routes.
func (h *Handlers) Register(r chi.Router) {
	r.Route("/api/rooms", func(r chi.Router) {
		r.Post("/", h.CreateRoom)
		r.Delete("/", h.LeaveRoom)
		// State-changing action reachable with the credential in a query
		// parameter, so page-unload beacons can still cancel a room.
		r.Post("/beacon-cancel", h.BeaconCancel)
		r.Get("/{roomID}", h.GetRoom)
		r.Post("/{roomID}/join", h.JoinRoom)
		r.Post("/{roomID}/invite", h.InviteFriend)
		r.Post("/{roomID}/start", h.StartGame)
	})
	r.Route("/api/games", func(r chi.Router) {
		r.Get("/{gameID}", h.GetGame)
		r.Post("/{gameID}/answer", h.SubmitAnswer)
	})
}

type inviteRequest struct {
	Username string `json:"username"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type gameResponse struct {
	Game         *models.Game `json:"game"`
	RemainingSec int          `json:"remaining_sec"`
}

// CreateRoom opens a new room hosted by the caller.
func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	room, err := h.app.CreateRoom(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// GetRoom returns a room by id.
func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	room, err := h.app.GetRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// JoinRoom seats the caller as a room's guest.
func (h *Handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	room, err := h.app.JoinRoom(r.Context(), actor, roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// InviteFriend announces an invitation to another user.
func (h *Handlers) InviteFriend(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.app.InviteFriend(r.Context(), actor, roomID, req.Username); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LeaveRoom removes the caller from their active room.
func (h *Handlers) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.LeaveRoom(r.Context(), actor); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BeaconCancel is the privileged beacon action: identical semantics to
// LeaveRoom, but reachable with the credential in the token query parameter
// because unload-triggered requests cannot set arbitrary headers. The auth
// middleware passed unauthenticated failures through; they surface as 401
// here.
func (h *Handlers) BeaconCancel(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireIdentity(r)
	if err != nil {
		log.Debug().Str("remote", r.RemoteAddr).Msg("unauthenticated beacon cancel rejected")
		writeError(w, err)
		return
	}
	if err := h.app.LeaveRoom(r.Context(), actor); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartGame transitions the room to IN_PROGRESS and starts round one.
func (h *Handlers) StartGame(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	game, err := h.app.StartGame(r.Context(), actor, roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

// GetGame returns a game snapshot with the current round's remaining time.
func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	game, err := h.game.GetGame(r.Context(), gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	remaining, err := h.game.RemainingTime(r.Context(), gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse{
		Game:         game,
		RemainingSec: int(remaining.Seconds()),
	})
}

// SubmitAnswer records the caller's answer for the current round.
func (h *Handlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	gameID, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.game.SubmitAnswer(r.Context(), actor, gameID, req.Answer); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}
