package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/models"
)

// memRepo is an in-memory UsersRepository for tests.
type memRepo struct {
	byID   map[uuid.UUID]*models.User
	byName map[string]*models.User
}

func newMemRepo() *memRepo {
	return &memRepo{
		byID:   make(map[uuid.UUID]*models.User),
		byName: make(map[string]*models.User),
	}
}

func (m *memRepo) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	user := &models.User{
		ID:          uuid.New(),
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		CreatedAt:   time.Now(),
	}
	m.byID[user.ID] = user
	m.byName[user.Username] = user
	return user, nil
}

func (m *memRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	return u, nil
}

func (m *memRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := m.byName[username]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	return u, nil
}

func TestCreateUser(t *testing.T) {
	app := NewApp(newMemRepo())
	ctx := context.Background()

	user, err := app.CreateUser(ctx, CreateUserRequest{
		Username: "alice",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username = %q", user.Username)
	}

	got, err := app.GetUser(ctx, user.ID)
	if err != nil || got.ID != user.ID {
		t.Fatalf("get = %+v, %v", got, err)
	}
	got, err = app.GetUserByUsername(ctx, "alice")
	if err != nil || got.ID != user.ID {
		t.Fatalf("get by username = %+v, %v", got, err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	app := NewApp(newMemRepo())
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"empty username", CreateUserRequest{Username: "  ", Email: "a@b.com"}},
		{"bad email", CreateUserRequest{Username: "bob", Email: "not-an-email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := app.CreateUser(ctx, tt.req); !apperrors.IsCode(err, apperrors.CodeIllegalState) {
				t.Fatalf("err = %v, want illegal state", err)
			}
		})
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	app := NewApp(newMemRepo())
	ctx := context.Background()

	if _, err := app.CreateUser(ctx, CreateUserRequest{Username: "alice", Email: "a@b.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := app.CreateUser(ctx, CreateUserRequest{Username: "alice", Email: "other@b.com"}); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("duplicate = %v, want conflict", err)
	}
}
