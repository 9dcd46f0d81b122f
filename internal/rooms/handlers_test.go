package rooms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/auth"
	"github.com/mcdev12/trivia/internal/models"
)

type fakeAuthLookup struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeAuthLookup) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	return u, nil
}

type fakeGameReader struct{}

func (fakeGameReader) GetGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	return nil, apperrors.New(apperrors.CodeNotFound, "game not found")
}

func (fakeGameReader) RemainingTime(ctx context.Context, gameID uuid.UUID) (time.Duration, error) {
	return 0, nil
}

func (fakeGameReader) SubmitAnswer(ctx context.Context, actor models.Identity, gameID uuid.UUID, answer string) error {
	return nil
}

var handlerTokenCfg = auth.TokenConfig{
	Secret: []byte("handler-test-secret"),
	Issuer: "trivia",
	TTL:    time.Hour,
}

// newTestRouter wires the full request path: auth middleware in front of the
// room handlers, identical to the production router.
func newTestRouter(t *testing.T, users ...*models.User) (*chi.Mux, *App) {
	t.Helper()
	lookup := &fakeAuthLookup{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		lookup.users[u.ID] = u
	}
	resolver := auth.NewResolver(handlerTokenCfg, lookup)

	app, _ := newTestApp()
	handlers := NewHandlers(app, fakeGameReader{})

	r := chi.NewRouter()
	r.Use(auth.Middleware(resolver))
	handlers.Register(r)
	return r, app
}

func mintToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := auth.Mint(handlerTokenCfg, user.ID, user.Username, time.Now())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return token
}

func TestCreateRoomRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateRoomWithBearerToken(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice"}
	router, _ := newTestRouter(t, user)

	req := httptest.NewRequest(http.MethodPost, "/api/rooms", nil)
	req.Header.Set(auth.AuthorizationHeader, "Bearer "+mintToken(t, user))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), string(models.RoomStatusWaitingForGuest)) {
		t.Fatalf("body %s should contain the new room", rec.Body.String())
	}

	// One active room per user surfaces as a conflict.
	req = httptest.NewRequest(http.MethodPost, "/api/rooms", nil)
	req.Header.Set(auth.AuthorizationHeader, "Bearer "+mintToken(t, user))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second create status = %d, want 409", rec.Code)
	}
}

func TestBeaconCancelWithQueryToken(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice"}
	router, app := newTestRouter(t, user)

	actor := models.Identity{UserID: user.ID, Name: "alice", Authenticated: true}
	room, err := app.CreateRoom(context.Background(), actor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Beacon requests cannot set headers; the credential rides the token
	// query parameter instead.
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/beacon-cancel?token="+mintToken(t, user), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204, body %s", rec.Code, rec.Body.String())
	}
	if _, err := app.GetRoom(context.Background(), room.ID); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("room after beacon cancel = %v, want destroyed", err)
	}
}

func TestBeaconCancelRejectsBadToken(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, target := range []string{
		"/api/rooms/beacon-cancel",
		"/api/rooms/beacon-cancel?token=garbage",
	} {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", target, rec.Code)
		}
	}
}

func TestGetRoomIsPublic(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice"}
	router, app := newTestRouter(t, user)

	actor := models.Identity{UserID: user.ID, Name: "alice", Authenticated: true}
	room, err := app.CreateRoom(context.Background(), actor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/"+room.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestIllegalStateMapsToUnprocessable(t *testing.T) {
	host := &models.User{ID: uuid.New(), Username: "host"}
	router, app := newTestRouter(t, host)

	actor := models.Identity{UserID: host.ID, Name: "host", Authenticated: true}
	room, err := app.CreateRoom(context.Background(), actor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Starting a room that is still waiting for a guest is a state error,
	// not a validation error.
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/"+room.ID.String()+"/start", nil)
	req.Header.Set(auth.AuthorizationHeader, "Bearer "+mintToken(t, host))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}
