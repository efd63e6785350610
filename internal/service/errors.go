package service

import (
	"errors"
	"fmt"
)

// Common service errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
)

// Player service specific errors
var (
	ErrPlayerNotFound = fmt.Errorf("player: %w", ErrNotFound)
)

// Game service specific errors
var (
	ErrGameNotFound = fmt.Errorf("game: %w", ErrNotFound)
	ErrSamePlayer   = errors.New("a player cannot play against themselves")
	ErrInvalidScore = fmt.Errorf("score out of range: %w", ErrInvalidInput)
)

// Rating errors
var (
	ErrRatingsBusy    = errors.New("ratings are being updated, try again shortly")
	ErrRatingLockLost = errors.New("rating lock lost before the update finished")
	ErrInvalidResult  = errors.New("game result must be a win, draw or loss")
)

// Recalculation phases reported by RecalculationError.
const (
	PhaseLock   = "lock"
	PhaseReset  = "reset"
	PhaseFetch  = "fetch"
	PhaseReplay = "replay"
	PhaseCommit = "commit"
)

// RecalculationError is returned when a full recalculation aborts. The transaction is
// rolled back, so GamesProcessed counts games replayed before the fault, none of which
// were kept.
type RecalculationError struct {
	Phase          string
	GamesProcessed int
	Err            error
}

func (e *RecalculationError) Error() string {
	return fmt.Sprintf("rating recalculation failed during %s after %d games: %v",
		e.Phase, e.GamesProcessed, e.Err)
}

func (e *RecalculationError) Unwrap() error {
	return e.Err
}
