package gateway

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/auth"
)

// ControlFrame is the initial message of a connection, carrying
// connection-level metadata including an optional frame-scoped
// Authorization header.
type ControlFrame struct {
	Type    string            `json:"type"`
	Headers map[string]string `json:"headers,omitempty"`
}

const controlFrameConnect = "connect"

// interceptFrame is the control-frame interceptor. When a connect frame
// carries a frame-scoped Authorization header, the credential resolves
// through the same IdentityResolver as every other channel and the
// connection is rebound to the resulting identity. A failure is logged and
// the frame left unauthenticated; the connection is never blocked.
func (h *Handler) interceptFrame(conn *Connection, message []byte) {
	var frame ControlFrame
	if err := json.Unmarshal(message, &frame); err != nil || frame.Type != controlFrameConnect {
		log.Debug().
			Str("connection_id", conn.ID).
			Msg("ignoring non-control client frame")
		return
	}

	raw := auth.TokenFromHeader(frame.Headers[auth.AuthorizationHeader])
	if raw == "" {
		return
	}

	identity, err := h.resolver.Resolve(context.Background(), raw)
	if err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("control frame credential did not resolve, leaving frame unauthenticated")
		return
	}

	h.manager.Rebind(conn, identity)
}
