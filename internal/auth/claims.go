package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PlayerClaims are the JWT claims carried by a player's bearer credential.
// The subject is the user's UUID.
type PlayerClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig defines how bearer credentials are signed and verified.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Mint signs a bearer credential for the given user. Used by the login
// surface and by tests.
func Mint(cfg TokenConfig, userID uuid.UUID, username string, now time.Time) (string, error) {
	claims := PlayerClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}
