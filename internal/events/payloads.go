// Package events defines the payloads pushed to clients over the
// notification bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/trivia/internal/models"
)

// RoomUpdatePayload reflects a room transition.
type RoomUpdatePayload struct {
	Room   *models.Room `json:"room"`
	Reason string       `json:"reason"`
}

// InvitePayload announces a room invitation to the invited user.
type InvitePayload struct {
	RoomID   uuid.UUID `json:"room_id"`
	FromUser string    `json:"from_user"`
}

// RoundStartedPayload announces a new round to both players.
type RoundStartedPayload struct {
	GameID      uuid.UUID `json:"game_id"`
	RoundNumber int       `json:"round_number"`
	Question    string    `json:"question"`
	StartedAt   time.Time `json:"started_at"`
	DurationSec int       `json:"duration_sec"`
}

// RoundResultPayload carries the outcome of a resolved round.
type RoundResultPayload struct {
	GameID      uuid.UUID         `json:"game_id"`
	RoundNumber int               `json:"round_number"`
	Answer      string            `json:"answer"`
	Scores      map[uuid.UUID]int `json:"scores"`
	TimedOut    bool              `json:"timed_out"`
}

// GameOverPayload carries the final scoreboard.
type GameOverPayload struct {
	GameID    uuid.UUID         `json:"game_id"`
	Scores    map[uuid.UUID]int `json:"scores"`
	Cancelled bool              `json:"cancelled"`
}
