package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/models"
)

type fakeUserLookup struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserLookup) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	return u, nil
}

var testTokenCfg = TokenConfig{
	Secret: []byte("test-secret"),
	Issuer: "trivia",
	TTL:    time.Hour,
}

func newTestResolver(users ...*models.User) *Resolver {
	lookup := &fakeUserLookup{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		lookup.users[u.ID] = u
	}
	return NewResolver(testTokenCfg, lookup)
}

func mintFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := Mint(testTokenCfg, user.ID, user.Username, time.Now())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return token
}

func TestResolveValidCredential(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice", DisplayName: "Alice"}
	r := newTestResolver(user)

	identity, err := r.Resolve(context.Background(), mintFor(t, user))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !identity.Authenticated {
		t.Fatal("identity should be authenticated")
	}
	if identity.UserID != user.ID {
		t.Fatalf("user id = %s, want %s", identity.UserID, user.ID)
	}
	if identity.Name != "Alice" {
		t.Fatalf("name = %q, want display name", identity.Name)
	}
}

func TestResolveDisplayNameFallback(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "bob"}
	r := newTestResolver(user)

	identity, err := r.Resolve(context.Background(), mintFor(t, user))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.Name != "bob" {
		t.Fatalf("name = %q, want username fallback", identity.Name)
	}
}

func TestResolveGarbageCredential(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(context.Background(), "not-a-token")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
	if !apperrors.IsCode(err, apperrors.CodeUnauthenticated) {
		t.Fatalf("err %v should carry the unauthenticated code", err)
	}
}

func TestResolveExpiredCredential(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "carol"}
	r := newTestResolver(user)

	token, err := Mint(testTokenCfg, user.ID, user.Username, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	_, err = r.Resolve(context.Background(), token)
	if !errors.Is(err, ErrExpiredCredential) {
		t.Fatalf("err = %v, want ErrExpiredCredential", err)
	}
	if errors.Is(err, ErrInvalidCredential) {
		t.Fatal("expired credential must not be reported as malformed")
	}
}

func TestResolveUnknownSubject(t *testing.T) {
	r := newTestResolver()

	ghost := &models.User{ID: uuid.New(), Username: "ghost"}
	_, err := r.Resolve(context.Background(), mintFor(t, ghost))
	if !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("err = %v, want ErrUnknownSubject", err)
	}
}

func TestResolveWrongSecret(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "dave"}
	r := newTestResolver(user)

	forged, err := Mint(TokenConfig{Secret: []byte("other-secret"), Issuer: "trivia", TTL: time.Hour},
		user.ID, user.Username, time.Now())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := r.Resolve(context.Background(), forged); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}

// The same credential must resolve to the same identity no matter which
// transport carried it.
func TestSameIdentityAcrossTransports(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "erin", DisplayName: "Erin"}
	r := newTestResolver(user)
	token := mintFor(t, user)

	headerReq := httptest.NewRequest("GET", "/api/rooms/x", nil)
	headerReq.Header.Set(AuthorizationHeader, "Bearer "+token)

	queryReq := httptest.NewRequest("POST", "/api/rooms/beacon-cancel?token="+token, nil)

	frameHeaders := map[string]string{AuthorizationHeader: "Bearer " + token}

	raws := []string{
		TokenFromRequest(headerReq),
		TokenFromRequest(queryReq),
		TokenFromHeader(frameHeaders[AuthorizationHeader]),
	}
	for i, raw := range raws {
		if raw != token {
			t.Fatalf("transport %d extracted %q, want the raw token", i, raw)
		}
		identity, err := r.Resolve(context.Background(), raw)
		if err != nil {
			t.Fatalf("transport %d resolve: %v", i, err)
		}
		if identity.UserID != user.ID || identity.Name != "Erin" || !identity.Authenticated {
			t.Fatalf("transport %d resolved %+v, want stable identity", i, identity)
		}
	}
}

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"empty", "", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme only", "Bearer ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenFromHeader(tt.value); got != tt.want {
				t.Fatalf("TokenFromHeader(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
