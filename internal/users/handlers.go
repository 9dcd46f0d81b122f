package users

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/auth"
)

// Handlers exposes registration and credential issuance over REST.
type Handlers struct {
	app      *App
	tokenCfg auth.TokenConfig
}

// NewHandlers creates the REST handlers for user management.
func NewHandlers(app *App, tokenCfg auth.TokenConfig) *Handlers {
	return &Handlers{app: app, tokenCfg: tokenCfg}
}

// Register mounts the user routes.
func (h *Handlers) Register(r chi.Router) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/me", h.Me)
	})
	r.Post("/api/auth/token", h.IssueToken)
}

type tokenRequest struct {
	Username string `json:"username"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateUser registers a new user.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.app.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// IssueToken mints a bearer credential for an existing user.
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.app.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now()
	token, err := auth.Mint(h.tokenCfg, user.ID, user.Username, now)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "mint token", err))
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: now.Add(h.tokenCfg.TTL),
	})
}

// Me returns the profile of the calling user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.app.GetUser(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
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
