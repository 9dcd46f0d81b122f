package auth

import (
	"net/http"
	"strings"
)

const (
	// AuthorizationHeader carries the bearer credential on plain requests,
	// websocket handshakes, and frame-scoped control headers alike.
	AuthorizationHeader = "Authorization"

	// TokenQueryParam carries the credential for transports that cannot set
	// custom headers (beacon requests, some websocket clients).
	TokenQueryParam = "token"

	bearerPrefix = "Bearer "
)

// TokenFromHeader extracts the raw credential from an Authorization header
// value. Returns "" when the header is absent or not bearer-shaped.
func TokenFromHeader(value string) string {
	if len(value) > len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(value[len(bearerPrefix):])
	}
	return ""
}

// TokenFromRequest extracts the raw credential from a request, preferring the
// Authorization header and falling back to the token query parameter.
func TokenFromRequest(r *http.Request) string {
	if tok := TokenFromHeader(r.Header.Get(AuthorizationHeader)); tok != "" {
		return tok
	}
	return strings.TrimSpace(r.URL.Query().Get(TokenQueryParam))
}
