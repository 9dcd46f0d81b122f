package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus defines the status of a game.
type GameStatus string

const (
	GameStatusInProgress GameStatus = "IN_PROGRESS"
	GameStatusCompleted  GameStatus = "COMPLETED"
	GameStatusCancelled  GameStatus = "CANCELLED"
)

// GameSettings holds per-game configuration.
type GameSettings struct {
	TotalRounds      int `json:"total_rounds"`
	RoundDurationSec int `json:"round_duration_sec"`
}

// Game is the scored play session created once a room is full and started.
type Game struct {
	ID           uuid.UUID         `json:"id"`
	RoomID       uuid.UUID         `json:"room_id"`
	Players      []uuid.UUID       `json:"players"`
	CurrentRound int               `json:"current_round"`
	Settings     GameSettings      `json:"settings"`
	Scores       map[uuid.UUID]int `json:"scores"`
	Status       GameStatus        `json:"status"`
	Rounds       []*Round          `json:"rounds"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// HasPlayer reports whether the given user participates in the game.
func (g *Game) HasPlayer(userID uuid.UUID) bool {
	for _, p := range g.Players {
		if p == userID {
			return true
		}
	}
	return false
}

// Round returns the round with the given 1-based number, or nil.
func (g *Game) Round(number int) *Round {
	if number < 1 || number > len(g.Rounds) {
		return nil
	}
	return g.Rounds[number-1]
}
