package rooms

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/events"
	"github.com/mcdev12/trivia/internal/models"
	"github.com/mcdev12/trivia/internal/notify"
)

// GameService defines what the room layer needs from the game layer.
type GameService interface {
	StartGame(ctx context.Context, room *models.Room) (*models.Game, error)
	CancelGame(ctx context.Context, gameID uuid.UUID) error
}

// UserLookup resolves invitation targets.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// App owns the room lifecycle: create, join, invite, start, leave. All state
// transitions are serialized by the store; this layer adds the collaborator
// calls (game teardown, push notifications) around them.
type App struct {
	store *Store
	games GameService
	users UserLookup
	bus   notify.Bus
}

// NewApp creates a new rooms App.
func NewApp(store *Store, games GameService, users UserLookup, bus notify.Bus) *App {
	return &App{store: store, games: games, users: users, bus: bus}
}

// CreateRoom opens a new room hosted by the actor. Fails with Conflict when
// the actor already hosts or guests a non-completed room.
func (a *App) CreateRoom(ctx context.Context, actor models.Identity) (*models.Room, error) {
	room, err := a.store.Create(actor)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Str("host", actor.Name).
		Msg("room created")
	a.bus.Broadcast(ctx, notify.TopicRoomUpdate, events.RoomUpdatePayload{Room: room, Reason: "created"})
	return room, nil
}

// GetRoom returns the room by id.
func (a *App) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	return a.store.Get(roomID)
}

// JoinRoom seats the actor as the room's guest.
func (a *App) JoinRoom(ctx context.Context, actor models.Identity, roomID uuid.UUID) (*models.Room, error) {
	room, err := a.store.Join(roomID, actor)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Str("guest", actor.Name).
		Msg("guest joined room")
	a.bus.SendToUser(ctx, room.HostName, notify.TopicRoomUpdate, events.RoomUpdatePayload{Room: room, Reason: "guest_joined"})
	return room, nil
}

// InviteFriend validates the target exists and the room is joinable, then
// announces the invitation to the target. It grants no access by itself;
// acceptance happens through JoinRoom.
func (a *App) InviteFriend(ctx context.Context, actor models.Identity, roomID uuid.UUID, targetName string) error {
	targetName = strings.TrimSpace(targetName)
	target, err := a.users.GetUserByUsername(ctx, targetName)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("user %q not found", targetName))
		}
		return fmt.Errorf("look up invite target: %w", err)
	}

	room, err := a.store.Get(roomID)
	if err != nil {
		return err
	}
	if room.Status != models.RoomStatusWaitingForGuest {
		return apperrors.New(apperrors.CodeIllegalState,
			fmt.Sprintf("room %s is not accepting invitations", roomID))
	}

	log.Info().
		Str("room_id", roomID.String()).
		Str("from", actor.Name).
		Str("to", target.Username).
		Msg("friend invited to room")
	a.bus.SendToUser(ctx, target.Username, notify.TopicInvite, events.InvitePayload{
		RoomID:   roomID,
		FromUser: actor.Name,
	})
	return nil
}

// LeaveRoom removes the actor from their active room. A host leave tears the
// room down entirely, including any running game and its timers.
func (a *App) LeaveRoom(ctx context.Context, actor models.Identity) error {
	before, wasHost, err := a.store.Leave(actor.UserID)
	if err != nil {
		return err
	}

	if before.GameID != nil {
		if err := a.games.CancelGame(ctx, *before.GameID); err != nil {
			log.Error().
				Err(err).
				Str("game_id", before.GameID.String()).
				Msg("failed to cancel game on room leave")
		}
	}

	if wasHost {
		log.Info().
			Str("room_id", before.ID.String()).
			Str("host", actor.Name).
			Msg("host left, room destroyed")
		if before.GuestName != "" {
			a.bus.SendToUser(ctx, before.GuestName, notify.TopicRoomUpdate, events.RoomUpdatePayload{
				Room:   before,
				Reason: "room_closed",
			})
		}
		return nil
	}

	after, err := a.store.Get(before.ID)
	if err != nil {
		return err
	}
	log.Info().
		Str("room_id", before.ID.String()).
		Str("guest", actor.Name).
		Msg("guest left room")
	a.bus.SendToUser(ctx, before.HostName, notify.TopicRoomUpdate, events.RoomUpdatePayload{
		Room:   after,
		Reason: "guest_left",
	})
	return nil
}

// StartGame moves the actor's room to IN_PROGRESS and spins up the game.
func (a *App) StartGame(ctx context.Context, actor models.Identity, roomID uuid.UUID) (*models.Game, error) {
	room, err := a.store.Start(roomID, actor.UserID)
	if err != nil {
		return nil, err
	}

	game, err := a.games.StartGame(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("start game for room %s: %w", roomID, err)
	}
	a.store.BindGame(roomID, game.ID)

	log.Info().
		Str("room_id", roomID.String()).
		Str("game_id", game.ID.String()).
		Msg("game started")
	for _, name := range []string{room.HostName, room.GuestName} {
		a.bus.SendToUser(ctx, name, notify.TopicGameUpdate, events.RoomUpdatePayload{Room: room, Reason: "game_started"})
	}
	return game, nil
}

// CompleteRoom marks the room COMPLETED once its game's final round resolved.
// Invoked by the game layer.
func (a *App) CompleteRoom(ctx context.Context, roomID uuid.UUID) {
	room, err := a.store.Complete(roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to complete room")
		return
	}
	a.bus.Broadcast(ctx, notify.TopicRoomUpdate, events.RoomUpdatePayload{Room: room, Reason: "completed"})
}
