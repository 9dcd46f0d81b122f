package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/auth"
	"github.com/mcdev12/trivia/internal/models"
)

// IdentityResolver is the single credential-resolution capability shared by
// the handshake adapter and the control-frame interceptor.
type IdentityResolver interface {
	Resolve(ctx context.Context, raw string) (models.Identity, error)
}

// Handler upgrades websocket connections. Two endpoints are exposed: /ws
// carries a fallback-transport probe for clients that cannot open a raw
// websocket, /ws/native upgrades directly. Both run the handshake adapter.
type Handler struct {
	manager  *ConnectionManager
	resolver IdentityResolver
}

// NewHandler creates the websocket handler.
func NewHandler(manager *ConnectionManager, resolver IdentityResolver) *Handler {
	return &Handler{manager: manager, resolver: resolver}
}

// Register mounts the connection endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ws", h.HandleConnection)
	r.Get("/ws/native", h.HandleConnection)
	r.Get("/ws/stats", h.HandleStats)
}

// HandleConnection is the handshake adapter. It resolves the credential from
// the Authorization header or the token query parameter; on failure or
// absence the connection proceeds under the anonymous sentinel identity
// rather than being rejected.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	// Fallback-transport probe: clients that cannot open a websocket ask
	// for a polling transport first; answer with a JSON notice instead of
	// failing the upgrade with a 400.
	if transport := r.URL.Query().Get("transport"); transport != "" && transport != "websocket" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"websocket":true,"upgrades":["websocket"]}`))
		return
	}

	identity := models.Anonymous()
	if raw := auth.TokenFromRequest(r); raw != "" {
		resolved, err := h.resolver.Resolve(r.Context(), raw)
		if err != nil {
			log.Warn().
				Err(err).
				Str("remote", r.RemoteAddr).
				Msg("handshake credential did not resolve, continuing as anonymous")
		} else {
			identity = resolved
		}
	}

	if err := h.manager.UpgradeConnection(w, r, identity, h.interceptFrame); err != nil {
		log.Error().Err(err).Str("user", identity.Name).Msg("failed to upgrade websocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

// HandleStats returns counts of active connections.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	conns, users := h.manager.Stats()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"connections":` + strconv.Itoa(conns) + `,"users":` + strconv.Itoa(users) + `}`))
}
