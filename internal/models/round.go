package models

import (
	"time"

	"github.com/google/uuid"
)

// SubmittedAnswer records a single player's answer within a round.
type SubmittedAnswer struct {
	Answer      string    `json:"answer"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Round is one timed guessing interval within a game, bound to one target
// answer. Rounds are superseded (Active flipped off), never deleted.
type Round struct {
	Number    int                           `json:"number"`
	Question  string                        `json:"question"`
	Answer    string                        `json:"-"`
	StartedAt time.Time                     `json:"started_at"`
	Duration  time.Duration                 `json:"duration"`
	Active    bool                          `json:"active"`
	Answers   map[uuid.UUID]SubmittedAnswer `json:"answers"`
}
