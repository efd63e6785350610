package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/internal/repository"
	"github.com/ktladder/ktladder-backend/pkg/logger"
)

const defaultProgressInterval = 100

// RecalculationResult summarizes a committed recalculation.
type RecalculationResult struct {
	GamesProcessed int           `json:"gamesProcessed"`
	PlayersRated   int           `json:"playersRated"`
	Duration       time.Duration `json:"-"`
}

// RecalculationService rebuilds every rating from the full game history.
type RecalculationService struct {
	store            repository.Transactor
	elo              *ELOService
	lock             RatingLock
	events           EventPublisher
	lockWait         time.Duration
	progressInterval int
}

func NewRecalculationService(
	store repository.Transactor,
	elo *ELOService,
	lock RatingLock,
	events EventPublisher,
) *RecalculationService {
	if events == nil {
		events = noopPublisher{}
	}
	return &RecalculationService{
		store:            store,
		elo:              elo,
		lock:             lock,
		events:           events,
		progressInterval: defaultProgressInterval,
	}
}

// WithLockWait bounds how long RecalculateAll waits for the rating lock before
// failing with ErrRatingsBusy.
func (s *RecalculationService) WithLockWait(wait time.Duration) *RecalculationService {
	s.lockWait = wait
	return s
}

// RecalculateAll resets every player to the initial rating and replays all games in
// chronological order (ties broken by game id), rewriting each game's snapshot and each
// player's final rating and games played.
//
// Everything runs in one transaction while the rating lock is held: readers see either
// the old ratings or the new ones. On any error nothing is kept and a
// *RecalculationError is returned.
func (s *RecalculationService) RecalculateAll(ctx context.Context) (*RecalculationResult, error) {
	start := time.Now()

	ctx, release, err := acquireRatingLock(ctx, s.lock, s.lockWait)
	if err != nil {
		return nil, s.fail(&RecalculationError{Phase: PhaseLock, Err: err})
	}
	defer release()

	logger.Info("Rating recalculation started")
	s.events.Publish(EventRecalculationStarted, nil)

	var (
		phase     = PhaseReset
		processed int
		result    *RecalculationResult
	)

	err = s.store.WithinTx(ctx, func(tx repository.Stores) error {
		if err := tx.Players.ResetRatings(ctx, s.elo.InitialRating()); err != nil {
			return err
		}
		if err := tx.Games.ClearRatingSnapshots(ctx); err != nil {
			return err
		}

		phase = PhaseFetch
		games, err := tx.Games.FindAllChronological(ctx)
		if err != nil {
			return err
		}

		phase = PhaseReplay
		ledger := NewRatingLedger(s.elo)
		for _, game := range games {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}

			snapshot, err := ledger.Apply(game)
			if err != nil {
				return err
			}
			if err := tx.Games.UpdateRatingSnapshot(ctx, game.ID, snapshot); err != nil {
				return fmt.Errorf("game %d: %w", game.ID, err)
			}
			processed++

			if processed%s.progressInterval == 0 {
				s.events.Publish(EventRecalculationProgress, RecalculationProgress{
					GamesProcessed: processed,
					TotalGames:     len(games),
				})
			}
		}

		// a lock lost during the last games must not reach the commit
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}

		phase = PhaseCommit
		players := ledger.Players()
		for _, id := range players {
			rating, played := ledger.Standing(id)
			if err := tx.Players.UpdateRating(ctx, id, rating, played); err != nil {
				return fmt.Errorf("player %d: %w", id, err)
			}
		}

		result = &RecalculationResult{
			GamesProcessed: processed,
			PlayersRated:   len(players),
		}
		return nil
	})
	if err != nil {
		var recalcErr *RecalculationError
		if !errors.As(err, &recalcErr) {
			recalcErr = &RecalculationError{Phase: phase, GamesProcessed: processed, Err: lockCause(ctx, err)}
		}
		return nil, s.fail(recalcErr)
	}

	result.Duration = time.Since(start)

	logger.Info("Rating recalculation completed",
		"gamesProcessed", result.GamesProcessed,
		"playersRated", result.PlayersRated,
		"duration", result.Duration,
	)
	s.events.Publish(EventRecalculationCompleted, result)

	return result, nil
}

func (s *RecalculationService) fail(err *RecalculationError) error {
	logger.Error("Rating recalculation failed",
		"phase", err.Phase,
		"gamesProcessed", err.GamesProcessed,
		"error", err.Err,
	)
	s.events.Publish(EventRecalculationFailed, map[string]interface{}{
		"phase":          err.Phase,
		"gamesProcessed": err.GamesProcessed,
		"error":          err.Err.Error(),
	})
	return err
}

// Preview replays the history without writing anything and lists the players whose
// stored rating or games played differ from the replayed values. It waits for the
// rating lock like RecalculateAll so it never reads a half-applied update.
func (s *RecalculationService) Preview(ctx context.Context) ([]models.RatingDrift, error) {
	ctx, release, err := acquireRatingLock(ctx, s.lock, s.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.preview(ctx)
}

// TryPreview is Preview without waiting: it returns ErrRatingsBusy while a submission or
// recalculation holds the lock.
func (s *RecalculationService) TryPreview(ctx context.Context) ([]models.RatingDrift, error) {
	ctx, release, err := tryRatingLock(ctx, s.lock)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.preview(ctx)
}

func (s *RecalculationService) preview(ctx context.Context) ([]models.RatingDrift, error) {
	var (
		players []*models.Player
		games   []*models.Game
	)

	// a transaction gives both reads the same view of the data
	err := s.store.WithinTx(ctx, func(tx repository.Stores) error {
		var err error
		if players, err = tx.Players.FindAll(ctx); err != nil {
			return err
		}
		games, err = tx.Games.FindAllChronological(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load rating history: %w", err)
	}

	ledger, _, err := ReplayGames(s.elo, games)
	if err != nil {
		return nil, err
	}

	drifts := make([]models.RatingDrift, 0)
	for _, p := range players {
		rating, played := ledger.Standing(p.ID)
		if rating == p.EloRating && played == p.GamesPlayed {
			continue
		}
		drifts = append(drifts, models.RatingDrift{
			PlayerID:            p.ID,
			Tag:                 p.Tag,
			StoredRating:        p.EloRating,
			ReplayedRating:      rating,
			StoredGamesPlayed:   p.GamesPlayed,
			ReplayedGamesPlayed: played,
		})
	}

	return drifts, nil
}
