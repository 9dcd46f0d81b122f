package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus defines the status of a room.
type RoomStatus string

const (
	RoomStatusWaitingForGuest RoomStatus = "WAITING_FOR_GUEST"
	RoomStatusReadyForStart   RoomStatus = "READY_FOR_START"
	RoomStatusInProgress      RoomStatus = "IN_PROGRESS"
	RoomStatusCompleted       RoomStatus = "COMPLETED"
)

// Room is a pairing slot between a host and an optional guest.
type Room struct {
	ID        uuid.UUID  `json:"id"`
	HostID    uuid.UUID  `json:"host_id"`
	HostName  string     `json:"host_name"`
	GuestID   *uuid.UUID `json:"guest_id,omitempty"`
	GuestName string     `json:"guest_name,omitempty"`
	Status    RoomStatus `json:"status"`
	GameID    *uuid.UUID `json:"game_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the room still occupies its members' single
// active-room slot.
func (r *Room) Active() bool {
	return r.Status != RoomStatusCompleted
}
