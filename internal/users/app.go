package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/models"
)

// UsersRepository defines what the app layer needs from the repository.
type UsersRepository interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// App handles users business logic.
type App struct {
	repo UsersRepository
}

// NewApp creates a new users App.
func NewApp(repo UsersRepository) *App {
	return &App{repo: repo}
}

// CreateUser creates a new user with validation.
func (a *App) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := validateCreateUserRequest(req); err != nil {
		return nil, err
	}

	existing, err := a.repo.GetUserByUsername(ctx, req.Username)
	if err == nil && existing != nil {
		return nil, apperrors.New(apperrors.CodeConflict, fmt.Sprintf("username %q is taken", req.Username))
	}

	user, err := a.repo.CreateUser(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("created user")
	return user, nil
}

// GetUser retrieves a user by ID.
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.repo.GetUser(ctx, id)
}

// GetUserByUsername retrieves a user by username.
func (a *App) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return a.repo.GetUserByUsername(ctx, username)
}

func validateCreateUserRequest(req CreateUserRequest) error {
	if strings.TrimSpace(req.Username) == "" {
		return apperrors.New(apperrors.CodeIllegalState, "username is required")
	}
	if !strings.Contains(req.Email, "@") {
		return apperrors.New(apperrors.CodeIllegalState, "email format is invalid")
	}
	return nil
}
