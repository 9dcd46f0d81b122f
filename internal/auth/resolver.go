package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/models"
)

// Sentinel failures surfaced by Resolve. All of them carry
// apperrors.CodeUnauthenticated; callers that need to distinguish use
// errors.Is against these values.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
	ErrUnknownSubject    = errors.New("unknown subject")
)

// UserLookup defines what the resolver needs from the users layer.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Resolver validates bearer credentials and produces a stable display
// identity. It is transport-agnostic: every channel adapter extracts the raw
// credential string itself and delegates here, so the same credential yields
// the same identity on every channel. Safe for concurrent use.
type Resolver struct {
	cfg   TokenConfig
	users UserLookup
}

// NewResolver creates a new identity resolver.
func NewResolver(cfg TokenConfig, users UserLookup) *Resolver {
	return &Resolver{cfg: cfg, users: users}
}

// Resolve validates the raw credential and returns the actor's identity.
// Absence of a credential is the caller's concern; Resolve treats an empty
// string as malformed.
func (r *Resolver) Resolve(ctx context.Context, raw string) (models.Identity, error) {
	var claims PlayerClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return r.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, apperrors.Wrap(apperrors.CodeUnauthenticated, "credential expired", ErrExpiredCredential)
		}
		return models.Identity{}, apperrors.Wrap(apperrors.CodeUnauthenticated, fmt.Sprintf("parse credential: %v", err), ErrInvalidCredential)
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Identity{}, apperrors.Wrap(apperrors.CodeUnauthenticated, "credential subject is not a user id", ErrInvalidCredential)
	}

	user, err := r.users.GetUser(ctx, subject)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return models.Identity{}, apperrors.Wrap(apperrors.CodeUnauthenticated, fmt.Sprintf("subject %s not found", subject), ErrUnknownSubject)
		}
		return models.Identity{}, fmt.Errorf("look up subject %s: %w", subject, err)
	}

	return models.Identity{
		UserID:        user.ID,
		Name:          displayName(user, claims.Subject),
		Authenticated: true,
	}, nil
}

// displayName picks the stable display identity, falling back to the subject
// key when the user record carries no name.
func displayName(user *models.User, subject string) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	if user.Username != "" {
		return user.Username
	}
	return subject
}
