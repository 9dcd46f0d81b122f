package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RoundKey identifies exactly one live round timer. It is a comparable
// composite key; matching on the GameID field is the only way timers are
// grouped, so one game's textual id being a prefix of another's can never
// cross wires.
type RoundKey struct {
	GameID uuid.UUID
	Round  int
}

// AdvanceFunc is the round-advance callback invoked when a round timer
// fires. The reference is captured at construction time; deferred code never
// reaches into a global registry to find it.
type AdvanceFunc func(ctx context.Context, gameID uuid.UUID, round int) error

// Config holds scheduler tuning knobs.
type Config struct {
	Workers   int
	QueueSize int
}

// DefaultConfig returns the default worker pool configuration.
func DefaultConfig() Config {
	workers := 10
	return Config{
		Workers:   workers,
		QueueSize: workers * 2,
	}
}

// handle is the bookkeeping record for one armed timer. One live handle per
// key at a time; arming a new handle for an existing key invalidates the
// previous one.
type handle struct {
	key      RoundKey
	timer    clockwork.Timer
	armedAt  time.Time
	duration time.Duration
	done     chan struct{}
}

// Scheduler owns every per-round deferred callback. Callbacks for different
// games run concurrently on a bounded worker pool; bookkeeping for a key is
// always cleaned up before its callback runs, regardless of callback outcome.
type Scheduler struct {
	clock   clockwork.Clock
	advance AdvanceFunc
	cfg     Config

	mu      sync.Mutex
	handles map[RoundKey]*handle

	workCh chan RoundKey
	stopCh chan struct{}
}

// New creates a scheduler. The advance callback is invoked from the worker
// pool each time a round timer fires.
func New(clock clockwork.Clock, advance AdvanceFunc, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg = DefaultConfig()
	}
	return &Scheduler{
		clock:   clock,
		advance: advance,
		cfg:     cfg,
		handles: make(map[RoundKey]*handle),
		workCh:  make(chan RoundKey, cfg.QueueSize),
		stopCh:  make(chan struct{}),
	}
}

// Start runs the worker pool until the context is cancelled, then cancels
// every outstanding timer and drains the workers.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Int("workers", s.cfg.Workers).Msg("round timer scheduler started")

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, i)
	}

	<-ctx.Done()
	close(s.stopCh)
	s.cancelAll()
	wg.Wait()
	log.Info().Msg("round timer scheduler stopped")
	return nil
}

// StartRoundTimer arms a one-shot timer for (gameID, roundNumber), cancelling
// and replacing any existing timer for the same key. After the duration
// elapses the round-advance callback is invoked exactly once.
func (s *Scheduler) StartRoundTimer(gameID uuid.UUID, roundNumber int, d time.Duration) {
	key := RoundKey{GameID: gameID, Round: roundNumber}

	s.mu.Lock()
	if prev, ok := s.handles[key]; ok {
		stopAndDrainTimer(prev.timer)
		close(prev.done)
		log.Debug().
			Str("game_id", gameID.String()).
			Int("round", roundNumber).
			Msg("replaced existing round timer")
	}
	h := &handle{
		key:      key,
		armedAt:  s.clock.Now(),
		duration: d,
		done:     make(chan struct{}),
	}
	h.timer = s.clock.NewTimer(d)
	s.handles[key] = h
	s.mu.Unlock()

	go s.await(h)

	log.Debug().
		Str("game_id", gameID.String()).
		Int("round", roundNumber).
		Dur("duration", d).
		Msg("armed round timer")
}

// await waits for one handle's timer to fire or be invalidated.
func (s *Scheduler) await(h *handle) {
	select {
	case <-h.timer.Chan():
		// Re-validate the handle is still the current one for its key
		// before any game state can be touched. A handle superseded or
		// cancelled after its timer fired loses the claim and never
		// reaches the callback.
		if !s.claim(h) {
			return
		}
		select {
		case s.workCh <- h.key:
		case <-s.stopCh:
			log.Debug().
				Str("game_id", h.key.GameID.String()).
				Int("round", h.key.Round).
				Msg("scheduler stopping, dropping fired timer")
		}
	case <-h.done:
	}
}

// claim removes the handle's bookkeeping iff it is still the live handle for
// its key. Exactly one of claim/supersede/cancel wins for any handle.
func (s *Scheduler) claim(h *handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles[h.key] != h {
		return false
	}
	delete(s.handles, h.key)
	return true
}

// CancelGameTimers cancels and removes every timer belonging to the game.
// Matching is structured equality on the GameID component; timers armed
// concurrently for the same game end up cancelled, not leaked, because
// arming and cancelling contend on the same registry lock.
func (s *Scheduler) CancelGameTimers(gameID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := 0
	for key, h := range s.handles {
		if key.GameID != gameID {
			continue
		}
		stopAndDrainTimer(h.timer)
		close(h.done)
		delete(s.handles, key)
		cancelled++
	}

	if cancelled > 0 {
		log.Debug().
			Str("game_id", gameID.String()).
			Int("cancelled", cancelled).
			Msg("cancelled game timers")
	}
}

// cancelAll tears down every live handle. Used at shutdown.
func (s *Scheduler) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, h := range s.handles {
		stopAndDrainTimer(h.timer)
		close(h.done)
		delete(s.handles, key)
	}
}

// RemainingTime returns how much of the round's duration is left, and zero
// (not an error) when no timer exists for the key.
func (s *Scheduler) RemainingTime(gameID uuid.UUID, roundNumber int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[RoundKey{GameID: gameID, Round: roundNumber}]
	if !ok {
		return 0
	}
	remaining := h.duration - s.clock.Since(h.armedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsRoundActive reports whether a live timer exists for the key. A handle is
// removed at fire-claim or cancel time, so existence implies the deferred
// task has neither completed nor been cancelled.
func (s *Scheduler) IsRoundActive(gameID uuid.UUID, roundNumber int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[RoundKey{GameID: gameID, Round: roundNumber}]
	return ok
}

// worker invokes round-advance callbacks from the work channel.
func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case key := <-s.workCh:
			s.runAdvance(ctx, key, workerID)
		}
	}
}

// runAdvance calls the callback with panic containment. A callback failure is
// logged and never crashes the worker pool; the key's bookkeeping was already
// removed at claim time.
func (s *Scheduler) runAdvance(ctx context.Context, key RoundKey, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("game_id", key.GameID.String()).
				Int("round", key.Round).
				Int("worker_id", workerID).
				Msg("round-advance callback panicked")
		}
	}()

	if err := s.advance(ctx, key.GameID, key.Round); err != nil {
		log.Error().
			Err(err).
			Str("game_id", key.GameID.String()).
			Int("round", key.Round).
			Int("worker_id", workerID).
			Msg("round-advance callback failed")
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent
// goroutine leaks. This follows the pattern recommended in the
// time.Timer.Stop() documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
