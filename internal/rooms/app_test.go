package rooms

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/models"
	"github.com/mcdev12/trivia/internal/notify"
)

// fakeGames records game lifecycle calls from the room layer.
type fakeGames struct {
	mu        sync.Mutex
	started   []*models.Room
	cancelled []uuid.UUID
}

func (f *fakeGames) StartGame(ctx context.Context, room *models.Room) (*models.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, room)
	return &models.Game{
		ID:     uuid.New(),
		RoomID: room.ID,
		Status: models.GameStatusInProgress,
	}, nil
}

func (f *fakeGames) CancelGame(ctx context.Context, gameID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, gameID)
	return nil
}

func (f *fakeGames) cancelledIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.cancelled...)
}

type fakeUsers struct {
	byName map[string]*models.User
}

func (f *fakeUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := f.byName[username]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	return u, nil
}

func identity(name string) models.Identity {
	return models.Identity{UserID: uuid.New(), Name: name, Authenticated: true}
}

func newTestApp(users ...*models.User) (*App, *fakeGames) {
	games := &fakeGames{}
	lookup := &fakeUsers{byName: make(map[string]*models.User)}
	for _, u := range users {
		lookup.byName[u.Username] = u
	}
	return NewApp(NewStore(), games, lookup, notify.NopBus{}), games
}

func TestRoomLifecycle(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	host := identity("host")
	guest := identity("guest")

	room, err := app.CreateRoom(ctx, host)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.Status != models.RoomStatusWaitingForGuest {
		t.Fatalf("status = %s", room.Status)
	}

	joined, err := app.JoinRoom(ctx, guest, room.ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.Status != models.RoomStatusReadyForStart {
		t.Fatalf("status after join = %s", joined.Status)
	}
	if joined.GuestID == nil || *joined.GuestID != guest.UserID {
		t.Fatal("guest slot not filled")
	}

	game, err := app.StartGame(ctx, host, room.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	started, _ := app.GetRoom(ctx, room.ID)
	if started.Status != models.RoomStatusInProgress {
		t.Fatalf("status after start = %s", started.Status)
	}
	if started.GameID == nil || *started.GameID != game.ID {
		t.Fatal("room not bound to its game")
	}
}

func TestOneActiveRoomPerUser(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	host := identity("host")
	guest := identity("guest")

	room, err := app.CreateRoom(ctx, host)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := app.CreateRoom(ctx, host); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("second create = %v, want conflict", err)
	}

	if _, err := app.JoinRoom(ctx, guest, room.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := app.CreateRoom(ctx, guest); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("guest create = %v, want conflict", err)
	}

	other, err := app.CreateRoom(ctx, identity("other"))
	if err != nil {
		t.Fatalf("other create: %v", err)
	}
	if _, err := app.JoinRoom(ctx, guest, other.ID); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("busy guest join = %v, want conflict", err)
	}
}

func TestJoinRejections(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	host := identity("host")

	room, err := app.CreateRoom(ctx, host)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := app.JoinRoom(ctx, host, room.ID); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("self-join = %v, want conflict", err)
	}
	if _, err := app.JoinRoom(ctx, identity("x"), uuid.New()); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("unknown room join = %v, want not found", err)
	}

	if _, err := app.JoinRoom(ctx, identity("first"), room.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := app.JoinRoom(ctx, identity("second"), room.ID); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("full room join = %v, want conflict", err)
	}
}

func TestStartRequiresHostAndReadyRoom(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	host := identity("host")
	guest := identity("guest")

	room, err := app.CreateRoom(ctx, host)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Waiting room cannot start even for the host.
	if _, err := app.StartGame(ctx, host, room.ID); !apperrors.IsCode(err, apperrors.CodeIllegalState) {
		t.Fatalf("start waiting room = %v, want illegal state", err)
	}

	if _, err := app.JoinRoom(ctx, guest, room.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := app.StartGame(ctx, guest, room.ID); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("guest start = %v, want conflict", err)
	}
	if _, err := app.StartGame(ctx, host, room.ID); err != nil {
		t.Fatalf("host start: %v", err)
	}
	if _, err := app.StartGame(ctx, host, room.ID); !apperrors.IsCode(err, apperrors.CodeIllegalState) {
		t.Fatalf("double start = %v, want illegal state", err)
	}
}

func TestHostLeaveDestroysRoomAndCancelsGame(t *testing.T) {
	app, games := newTestApp()
	ctx := context.Background()
	host := identity("host")
	guest := identity("guest")

	room, _ := app.CreateRoom(ctx, host)
	if _, err := app.JoinRoom(ctx, guest, room.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	game, err := app.StartGame(ctx, host, room.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := app.LeaveRoom(ctx, host); err != nil {
		t.Fatalf("leave: %v", err)
	}

	if ids := games.cancelledIDs(); len(ids) != 1 || ids[0] != game.ID {
		t.Fatalf("cancelled games = %v, want exactly the running game", ids)
	}
	if _, err := app.GetRoom(ctx, room.ID); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("room after host leave = %v, want not found", err)
	}

	// Both members are free again.
	if _, err := app.CreateRoom(ctx, host); err != nil {
		t.Fatalf("host recreate: %v", err)
	}
	if _, err := app.CreateRoom(ctx, guest); err != nil {
		t.Fatalf("guest recreate: %v", err)
	}
}

func TestGuestLeaveRevertsRoom(t *testing.T) {
	app, games := newTestApp()
	ctx := context.Background()
	host := identity("host")
	guest := identity("guest")

	room, _ := app.CreateRoom(ctx, host)
	if _, err := app.JoinRoom(ctx, guest, room.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := app.StartGame(ctx, host, room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := app.LeaveRoom(ctx, guest); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if len(games.cancelledIDs()) != 1 {
		t.Fatal("running game should be cancelled when the guest leaves")
	}

	after, err := app.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.Status != models.RoomStatusWaitingForGuest {
		t.Fatalf("status = %s, want waiting again", after.Status)
	}
	if after.GuestID != nil || after.GameID != nil {
		t.Fatal("guest and game bindings should be cleared")
	}

	// The freed guest can join another room; a new guest can take the slot.
	if _, err := app.JoinRoom(ctx, identity("replacement"), room.ID); err != nil {
		t.Fatalf("replacement join: %v", err)
	}
}

func TestLeaveWithoutRoom(t *testing.T) {
	app, _ := newTestApp()
	if err := app.LeaveRoom(context.Background(), identity("nobody")); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("leave = %v, want not found", err)
	}
}

func TestInviteFriend(t *testing.T) {
	friend := &models.User{ID: uuid.New(), Username: "friend"}
	app, _ := newTestApp(friend)
	ctx := context.Background()
	host := identity("host")

	room, _ := app.CreateRoom(ctx, host)

	if err := app.InviteFriend(ctx, host, room.ID, "friend"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := app.InviteFriend(ctx, host, room.ID, "stranger"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("unknown target = %v, want not found", err)
	}

	if _, err := app.JoinRoom(ctx, identity("guest"), room.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := app.InviteFriend(ctx, host, room.ID, "friend"); !apperrors.IsCode(err, apperrors.CodeIllegalState) {
		t.Fatalf("invite to full room = %v, want illegal state", err)
	}
}

func TestCompleteRoomFreesMembers(t *testing.T) {
	app, _ := newTestApp()
	ctx := context.Background()
	host := identity("host")
	guest := identity("guest")

	room, _ := app.CreateRoom(ctx, host)
	if _, err := app.JoinRoom(ctx, guest, room.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := app.StartGame(ctx, host, room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	app.CompleteRoom(ctx, room.ID)

	after, err := app.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("completed room should stay retrievable: %v", err)
	}
	if after.Status != models.RoomStatusCompleted {
		t.Fatalf("status = %s, want completed", after.Status)
	}

	if _, err := app.CreateRoom(ctx, host); err != nil {
		t.Fatalf("host should be free after completion: %v", err)
	}
	if _, err := app.CreateRoom(ctx, guest); err != nil {
		t.Fatalf("guest should be free after completion: %v", err)
	}
}
