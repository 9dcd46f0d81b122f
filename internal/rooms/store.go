package rooms

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/models"
)

// Store is the in-memory room registry. It is the single owner of room state:
// every transition happens under its lock, and callers only ever see copies.
// The byUser index enforces the one-active-room-per-user invariant for hosts
// and guests alike.
type Store struct {
	mu     sync.Mutex
	rooms  map[uuid.UUID]*models.Room
	byUser map[uuid.UUID]uuid.UUID
}

// NewStore creates an empty room store.
func NewStore() *Store {
	return &Store{
		rooms:  make(map[uuid.UUID]*models.Room),
		byUser: make(map[uuid.UUID]uuid.UUID),
	}
}

// Create inserts a new room hosted by the given user.
func (s *Store) Create(host models.Identity) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roomID, ok := s.byUser[host.UserID]; ok {
		return nil, apperrors.New(apperrors.CodeConflict,
			fmt.Sprintf("user %s already occupies room %s", host.Name, roomID))
	}

	room := &models.Room{
		ID:        uuid.New(),
		HostID:    host.UserID,
		HostName:  host.Name,
		Status:    models.RoomStatusWaitingForGuest,
		CreatedAt: time.Now(),
	}
	s.rooms[room.ID] = room
	s.byUser[host.UserID] = room.ID
	return clone(room), nil
}

// Get returns a copy of the room.
func (s *Store) Get(roomID uuid.UUID) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("room %s not found", roomID))
	}
	return clone(room), nil
}

// Join fills the guest slot and moves the room to READY_FOR_START.
func (s *Store) Join(roomID uuid.UUID, guest models.Identity) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("room %s not found", roomID))
	}
	if room.HostID == guest.UserID {
		return nil, apperrors.New(apperrors.CodeConflict, "host cannot join their own room")
	}
	if room.GuestID != nil {
		return nil, apperrors.New(apperrors.CodeConflict, fmt.Sprintf("room %s already has a guest", roomID))
	}
	if room.Status != models.RoomStatusWaitingForGuest {
		return nil, apperrors.New(apperrors.CodeIllegalState,
			fmt.Sprintf("room %s is not waiting for a guest", roomID))
	}
	if otherID, ok := s.byUser[guest.UserID]; ok {
		return nil, apperrors.New(apperrors.CodeConflict,
			fmt.Sprintf("user %s already occupies room %s", guest.Name, otherID))
	}

	guestID := guest.UserID
	room.GuestID = &guestID
	room.GuestName = guest.Name
	room.Status = models.RoomStatusReadyForStart
	s.byUser[guest.UserID] = room.ID
	return clone(room), nil
}

// Leave removes the user from their active room. A host leave destroys the
// room entirely; a guest leave clears the guest slot and reverts the room to
// WAITING_FOR_GUEST. The returned room is the state before the transition.
func (s *Store) Leave(userID uuid.UUID) (room *models.Room, wasHost bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.byUser[userID]
	if !ok {
		return nil, false, apperrors.New(apperrors.CodeNotFound, "user has no active room")
	}
	r := s.rooms[roomID]
	before := clone(r)

	if r.HostID == userID {
		delete(s.byUser, r.HostID)
		if r.GuestID != nil {
			delete(s.byUser, *r.GuestID)
		}
		delete(s.rooms, roomID)
		return before, true, nil
	}

	delete(s.byUser, userID)
	r.GuestID = nil
	r.GuestName = ""
	r.GameID = nil
	r.Status = models.RoomStatusWaitingForGuest
	return before, false, nil
}

// Start moves a READY_FOR_START room to IN_PROGRESS. Only the host starts.
func (s *Store) Start(roomID, actorID uuid.UUID) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("room %s not found", roomID))
	}
	if room.HostID != actorID {
		return nil, apperrors.New(apperrors.CodeConflict, "only the host can start the game")
	}
	if room.Status != models.RoomStatusReadyForStart {
		return nil, apperrors.New(apperrors.CodeIllegalState,
			fmt.Sprintf("room %s is not ready to start", roomID))
	}

	room.Status = models.RoomStatusInProgress
	return clone(room), nil
}

// BindGame records the game attached to an IN_PROGRESS room.
func (s *Store) BindGame(roomID, gameID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[roomID]; ok {
		id := gameID
		room.GameID = &id
	}
}

// Complete marks the room COMPLETED and frees both members' active-room
// slots. The room stays retrievable.
func (s *Store) Complete(roomID uuid.UUID) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("room %s not found", roomID))
	}
	room.Status = models.RoomStatusCompleted
	delete(s.byUser, room.HostID)
	if room.GuestID != nil {
		delete(s.byUser, *room.GuestID)
	}
	return clone(room), nil
}

func clone(r *models.Room) *models.Room {
	cp := *r
	if r.GuestID != nil {
		id := *r.GuestID
		cp.GuestID = &id
	}
	if r.GameID != nil {
		id := *r.GameID
		cp.GameID = &id
	}
	return &cp
}
