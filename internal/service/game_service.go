package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/internal/repository"
	"github.com/ktladder/ktladder-backend/pkg/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// allowed clock skew for client-supplied play dates
	playedAtTolerance = 5 * time.Minute
)

// GameRatedEvent is published after a submitted game has been rated.
type GameRatedEvent struct {
	Game    *models.Game `json:"game"`
	ChangeA int          `json:"player1Change"`
	ChangeB int          `json:"player2Change"`
}

type GameService struct {
	store    repository.Transactor
	games    repository.GameStore
	players  *PlayerService
	elo      *ELOService
	lock     RatingLock
	events   EventPublisher
	lockWait time.Duration
}

func NewGameService(
	store repository.Transactor,
	games repository.GameStore,
	players *PlayerService,
	elo *ELOService,
	lock RatingLock,
	events EventPublisher,
	lockWait time.Duration,
) *GameService {
	if events == nil {
		events = noopPublisher{}
	}
	return &GameService{
		store:    store,
		games:    games,
		players:  players,
		elo:      elo,
		lock:     lock,
		events:   events,
		lockWait: lockWait,
	}
}

// GetByID 게임 조회
func (s *GameService) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	game, err := s.games.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// List 게임 목록 (최신순, 페이지네이션)
func (s *GameService) List(ctx context.Context, filter models.GameFilter, page, pageSize int) ([]*models.Game, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	games, err := s.games.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// Submit validates and stores a game, then rates it immediately against the stored
// ratings of both participants.
func (s *GameService) Submit(ctx context.Context, req models.SubmitGameRequest) (*models.Game, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	p1, err := s.players.Resolve(ctx, req.Player1.Player)
	if err != nil {
		return nil, err
	}

	var p2 *models.Player
	if req.AnonymousOpponent {
		p2, err = s.players.Anonymous(ctx)
	} else {
		p2, err = s.players.Resolve(ctx, req.Player2.Player)
	}
	if err != nil {
		return nil, err
	}

	if p1.ID == p2.ID {
		return nil, ErrSamePlayer
	}

	game := &models.Game{
		Country:   strings.TrimSpace(req.Country),
		Killzone:  strings.TrimSpace(req.Killzone),
		MapLayout: strings.TrimSpace(req.MapLayout),
		CritOp:    strings.TrimSpace(req.CritOp),
		Player1:   buildSide(p1.ID, req.Player1),
		Player2:   buildSide(p2.ID, req.Player2),
	}
	if req.PlayedAt != nil {
		game.PlayedAt = *req.PlayedAt
	}

	return s.rate(ctx, game)
}

func (s *GameService) rate(ctx context.Context, game *models.Game) (*models.Game, error) {
	ctx, release, err := acquireRatingLock(ctx, s.lock, s.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		rated            *models.Game
		changeA, changeB int
	)

	err = s.store.WithinTx(ctx, func(tx repository.Stores) error {
		created, err := tx.Games.Create(ctx, game)
		if err != nil {
			return err
		}

		a, err := tx.Players.FindByID(ctx, created.Player1.PlayerID)
		if err != nil {
			return err
		}
		b, err := tx.Players.FindByID(ctx, created.Player2.PlayerID)
		if err != nil {
			return err
		}
		if a == nil || b == nil {
			return ErrPlayerNotFound
		}

		result := GameResult(created.Player1.Total(), created.Player2.Total())
		snapshot, err := s.elo.RateGame(a.EloRating, b.EloRating, a.GamesPlayed, b.GamesPlayed, result)
		if err != nil {
			return err
		}
		changeA = snapshot.Player1After - snapshot.Player1Before
		changeB = snapshot.Player2After - snapshot.Player2Before

		if err := tx.Games.UpdateRatingSnapshot(ctx, created.ID, snapshot); err != nil {
			return err
		}
		if err := tx.Players.UpdateRating(ctx, a.ID, snapshot.Player1After, a.GamesPlayed+1); err != nil {
			return err
		}
		if err := tx.Players.UpdateRating(ctx, b.ID, snapshot.Player2After, b.GamesPlayed+1); err != nil {
			return err
		}

		created.ApplySnapshot(snapshot)
		rated = created
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record game: %w", lockCause(ctx, err))
	}

	logger.Info("Game rated",
		"gameId", rated.ID,
		"player1", rated.Player1.PlayerID,
		"player1Change", changeA,
		"player2", rated.Player2.PlayerID,
		"player2Change", changeB,
	)

	s.events.Publish(EventGameRated, GameRatedEvent{Game: rated, ChangeA: changeA, ChangeB: changeB})

	return rated, nil
}

func buildSide(playerID int64, req models.SubmitGameSide) models.GameSide {
	side := models.GameSide{
		PlayerID:    playerID,
		Killteam:    strings.TrimSpace(req.Killteam),
		TacOp:       strings.TrimSpace(req.TacOp),
		PrimaryOp:   req.PrimaryOp,
		TacOpScore:  req.TacOpScore,
		CritOpScore: req.CritOpScore,
		KillOpScore: req.KillOpScore,
	}
	side.PrimaryOpScore = side.DerivePrimaryOpScore()
	return side
}

func validateSubmission(req models.SubmitGameRequest) error {
	if err := validateSide("player1", req.Player1); err != nil {
		return err
	}
	if err := validateSide("player2", req.Player2); err != nil {
		return err
	}

	if req.Player1.Player.ID == nil && strings.TrimSpace(req.Player1.Player.Tag) == "" {
		return fmt.Errorf("player1 is required: %w", ErrInvalidInput)
	}
	if !req.AnonymousOpponent && req.Player2.Player.ID == nil && strings.TrimSpace(req.Player2.Player.Tag) == "" {
		return fmt.Errorf("player2 is required: %w", ErrInvalidInput)
	}

	if req.PlayedAt != nil && req.PlayedAt.After(time.Now().Add(playedAtTolerance)) {
		return fmt.Errorf("playedAt is in the future: %w", ErrInvalidInput)
	}

	return nil
}

func validateSide(name string, side models.SubmitGameSide) error {
	if strings.TrimSpace(side.Killteam) == "" {
		return fmt.Errorf("%s killteam is required: %w", name, ErrInvalidInput)
	}
	if !side.PrimaryOp.Valid() {
		return fmt.Errorf("%s primary op %q is not one of tacop, critop, killop: %w",
			name, side.PrimaryOp, ErrInvalidInput)
	}

	scores := map[string]int{
		"tacOpScore":  side.TacOpScore,
		"critOpScore": side.CritOpScore,
		"killOpScore": side.KillOpScore,
	}
	for field, score := range scores {
		if score < models.MinComponentScore || score > models.MaxComponentScore {
			return fmt.Errorf("%s %s must be %d-%d: %w",
				name, field, models.MinComponentScore, models.MaxComponentScore, ErrInvalidScore)
		}
	}

	return nil
}
