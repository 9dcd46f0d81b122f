package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/apperrors"
	"github.com/mcdev12/trivia/internal/events"
	"github.com/mcdev12/trivia/internal/models"
	"github.com/mcdev12/trivia/internal/notify"
)

// RoundScheduler defines what the game layer needs from the timer scheduler.
type RoundScheduler interface {
	StartRoundTimer(gameID uuid.UUID, roundNumber int, d time.Duration)
	CancelGameTimers(gameID uuid.UUID)
	RemainingTime(gameID uuid.UUID, roundNumber int) time.Duration
	IsRoundActive(gameID uuid.UUID, roundNumber int) bool
}

// RoomCompleter closes the owning room once a game's final round resolved.
// Bound after construction to keep the rooms→game dependency one-way.
type RoomCompleter interface {
	CompleteRoom(ctx context.Context, roomID uuid.UUID)
}

// Config holds per-game defaults.
type Config struct {
	TotalRounds   int
	RoundDuration time.Duration
}

// DefaultConfig returns the default game configuration.
func DefaultConfig() Config {
	return Config{
		TotalRounds:   5,
		RoundDuration: 30 * time.Second,
	}
}

// gameState pairs a game with its serialization lock and the display names
// used for user-addressed pushes.
type gameState struct {
	mu    sync.Mutex
	game  *models.Game
	names map[uuid.UUID]string
}

// App owns game and round progression. Per-game mutations are serialized by
// a per-game mutex, and each round carries an Active flag that exactly one
// writer may flip: the all-answered path and the timeout callback race for
// it, and the loser no-ops instead of double-processing the round.
type App struct {
	cfg       Config
	clock     clockwork.Clock
	sched     RoundScheduler
	bus       notify.Bus
	questions QuestionSource

	mu    sync.Mutex
	games map[uuid.UUID]*gameState

	roomsMu sync.Mutex
	rooms   RoomCompleter
}

// NewApp creates a new game App.
func NewApp(cfg Config, clock clockwork.Clock, sched RoundScheduler, bus notify.Bus, questions QuestionSource) *App {
	if cfg.TotalRounds <= 0 {
		cfg = DefaultConfig()
	}
	return &App{
		cfg:       cfg,
		clock:     clock,
		sched:     sched,
		bus:       bus,
		questions: questions,
		games:     make(map[uuid.UUID]*gameState),
	}
}

// BindRoomCompleter wires the rooms layer in after construction.
func (a *App) BindRoomCompleter(rooms RoomCompleter) {
	a.roomsMu.Lock()
	defer a.roomsMu.Unlock()
	a.rooms = rooms
}

// StartGame creates a game for a started room, arms the first round timer,
// and announces round one to both players.
func (a *App) StartGame(ctx context.Context, room *models.Room) (*models.Game, error) {
	if room.GuestID == nil {
		return nil, apperrors.New(apperrors.CodeIllegalState, "room has no guest")
	}

	game := &models.Game{
		ID:           uuid.New(),
		RoomID:       room.ID,
		Players:      []uuid.UUID{room.HostID, *room.GuestID},
		CurrentRound: 0,
		Settings: models.GameSettings{
			TotalRounds:      a.cfg.TotalRounds,
			RoundDurationSec: int(a.cfg.RoundDuration.Seconds()),
		},
		Scores:    map[uuid.UUID]int{room.HostID: 0, *room.GuestID: 0},
		Status:    models.GameStatusInProgress,
		StartedAt: a.clock.Now(),
	}
	state := &gameState{
		game: game,
		names: map[uuid.UUID]string{
			room.HostID:   room.HostName,
			*room.GuestID: room.GuestName,
		},
	}

	a.mu.Lock()
	a.games[game.ID] = state
	a.mu.Unlock()

	state.mu.Lock()
	a.openNextRound(ctx, state)
	snapshot := cloneGame(game)
	state.mu.Unlock()

	return snapshot, nil
}

// GetGame returns a snapshot of the game.
func (a *App) GetGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	state, err := a.state(gameID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return cloneGame(state.game), nil
}

// RemainingTime reports how long the game's current round has left.
func (a *App) RemainingTime(ctx context.Context, gameID uuid.UUID) (time.Duration, error) {
	state, err := a.state(gameID)
	if err != nil {
		return 0, err
	}
	state.mu.Lock()
	round := state.game.CurrentRound
	state.mu.Unlock()
	return a.sched.RemainingTime(gameID, round), nil
}

// SubmitAnswer records the actor's answer for the current round. When every
// player has answered, the round resolves immediately instead of waiting for
// the timeout.
func (a *App) SubmitAnswer(ctx context.Context, actor models.Identity, gameID uuid.UUID, answer string) error {
	state, err := a.state(gameID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	game := state.game
	if game.Status != models.GameStatusInProgress {
		return apperrors.New(apperrors.CodeIllegalState, "game is not in progress")
	}
	if !game.HasPlayer(actor.UserID) {
		return apperrors.New(apperrors.CodeConflict, "actor is not a player in this game")
	}
	round := game.Round(game.CurrentRound)
	if round == nil || !round.Active {
		return apperrors.New(apperrors.CodeIllegalState, "no active round to answer")
	}
	if _, ok := round.Answers[actor.UserID]; ok {
		return apperrors.New(apperrors.CodeConflict, "answer already submitted for this round")
	}

	round.Answers[actor.UserID] = models.SubmittedAnswer{
		Answer:      answer,
		Correct:     answersMatch(answer, round.Answer),
		SubmittedAt: a.clock.Now(),
	}
	log.Debug().
		Str("game_id", gameID.String()).
		Int("round", round.Number).
		Str("player", actor.Name).
		Msg("answer submitted")

	if len(round.Answers) == len(game.Players) {
		// All players answered: resolve now. The pending timer is torn
		// down so the timeout path cannot fire for this round.
		round.Active = false
		a.sched.CancelGameTimers(gameID)
		a.resolveRound(ctx, state, round, false)
	}
	return nil
}

// AdvanceRound is the scheduler's timeout callback. A stale invocation (the
// round already resolved via the all-answered path, the game was cancelled,
// or a later round is running) is a no-op.
func (a *App) AdvanceRound(ctx context.Context, gameID uuid.UUID, roundNumber int) error {
	state, err := a.state(gameID)
	if err != nil {
		// Game already torn down; the timeout has nothing to do.
		log.Debug().
			Str("game_id", gameID.String()).
			Int("round", roundNumber).
			Msg("timeout for unknown game, ignoring")
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	game := state.game
	if game.Status != models.GameStatusInProgress || roundNumber != game.CurrentRound {
		return nil
	}
	round := game.Round(roundNumber)
	if round == nil || !round.Active {
		// The all-answered path won the race.
		return nil
	}

	round.Active = false
	log.Info().
		Str("game_id", gameID.String()).
		Int("round", roundNumber).
		Msg("round timed out")
	a.resolveRound(ctx, state, round, true)
	return nil
}

// CancelGame terminates the game and tears down its timers. Idempotent for
// already-terminal games.
func (a *App) CancelGame(ctx context.Context, gameID uuid.UUID) error {
	state, err := a.state(gameID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	game := state.game
	if game.Status != models.GameStatusInProgress {
		return nil
	}
	game.Status = models.GameStatusCancelled
	now := a.clock.Now()
	game.CompletedAt = &now
	if round := game.Round(game.CurrentRound); round != nil {
		round.Active = false
	}
	a.sched.CancelGameTimers(gameID)

	log.Info().Str("game_id", gameID.String()).Msg("game cancelled")
	a.pushToPlayers(ctx, state, notify.TopicGameOver, events.GameOverPayload{
		GameID:    gameID,
		Scores:    cloneScores(game.Scores),
		Cancelled: true,
	})
	return nil
}

// openNextRound creates and announces the next round and arms its timer.
// Caller holds the state lock.
func (a *App) openNextRound(ctx context.Context, state *gameState) {
	game := state.game
	question, answer := a.questions.Next()
	round := &models.Round{
		Number:    game.CurrentRound + 1,
		Question:  question,
		Answer:    answer,
		StartedAt: a.clock.Now(),
		Duration:  a.cfg.RoundDuration,
		Active:    true,
		Answers:   make(map[uuid.UUID]models.SubmittedAnswer),
	}
	game.Rounds = append(game.Rounds, round)
	game.CurrentRound = round.Number

	a.sched.StartRoundTimer(game.ID, round.Number, round.Duration)

	log.Info().
		Str("game_id", game.ID.String()).
		Int("round", round.Number).
		Msg("round started")
	a.pushToPlayers(ctx, state, notify.TopicRoundStart, events.RoundStartedPayload{
		GameID:      game.ID,
		RoundNumber: round.Number,
		Question:    round.Question,
		StartedAt:   round.StartedAt,
		DurationSec: int(round.Duration.Seconds()),
	})
}

// resolveRound scores a closed round, then either opens the next round or
// finalizes the game. Caller holds the state lock and has already flipped
// the round's Active flag.
func (a *App) resolveRound(ctx context.Context, state *gameState, round *models.Round, timedOut bool) {
	game := state.game
	for playerID, sub := range round.Answers {
		if sub.Correct {
			game.Scores[playerID]++
		}
	}

	a.pushToPlayers(ctx, state, notify.TopicRoundResult, events.RoundResultPayload{
		GameID:      game.ID,
		RoundNumber: round.Number,
		Answer:      round.Answer,
		Scores:      cloneScores(game.Scores),
		TimedOut:    timedOut,
	})

	if round.Number >= game.Settings.TotalRounds {
		a.finalize(ctx, state)
		return
	}
	a.openNextRound(ctx, state)
}

// finalize marks the game COMPLETED and closes the owning room. Caller holds
// the state lock.
func (a *App) finalize(ctx context.Context, state *gameState) {
	game := state.game
	game.Status = models.GameStatusCompleted
	now := a.clock.Now()
	game.CompletedAt = &now

	log.Info().
		Str("game_id", game.ID.String()).
		Str("room_id", game.RoomID.String()).
		Msg("game completed")
	a.pushToPlayers(ctx, state, notify.TopicGameOver, events.GameOverPayload{
		GameID: game.ID,
		Scores: cloneScores(game.Scores),
	})

	a.roomsMu.Lock()
	rooms := a.rooms
	a.roomsMu.Unlock()
	if rooms != nil {
		rooms.CompleteRoom(ctx, game.RoomID)
	}
}

func (a *App) state(gameID uuid.UUID) (*gameState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.games[gameID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("game %s not found", gameID))
	}
	return state, nil
}

func (a *App) pushToPlayers(ctx context.Context, state *gameState, topic string, payload any) {
	for _, name := range state.names {
		a.bus.SendToUser(ctx, name, topic, payload)
	}
}

// answersMatch compares a submission against the target answer,
// case-insensitively and ignoring surrounding whitespace.
func answersMatch(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}

func cloneScores(scores map[uuid.UUID]int) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	return out
}

func cloneGame(g *models.Game) *models.Game {
	cp := *g
	cp.Players = append([]uuid.UUID(nil), g.Players...)
	cp.Scores = cloneScores(g.Scores)
	cp.Rounds = make([]*models.Round, len(g.Rounds))
	for i, r := range g.Rounds {
		rc := *r
		rc.Answers = make(map[uuid.UUID]models.SubmittedAnswer, len(r.Answers))
		for k, v := range r.Answers {
			rc.Answers[k] = v
		}
		cp.Rounds[i] = &rc
	}
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
