package service

import (
	"fmt"
	"math"

	"github.com/ktladder/ktladder-backend/internal/models"
)

// Game result values from the first side's perspective.
const (
	ResultLoss = 0.0
	ResultDraw = 0.5
	ResultWin  = 1.0
)

// ELOService ELO 레이팅 계산 서비스
//
// It is stateless and safe for concurrent use.
type ELOService struct {
	initialRating int
}

// NewELOService ELO 서비스 생성
func NewELOService() *ELOService {
	return &ELOService{
		initialRating: models.DefaultEloRating,
	}
}

// InitialRating is the rating a player holds before their first game.
func (s *ELOService) InitialRating() int {
	return s.initialRating
}

// GetKFactor returns the K-factor for a player with the given number of rated games:
// - fewer than 20 games: K=32 (provisional)
// - 20 to 49 games: K=24
// - 50 games or more: K=16
func (s *ELOService) GetKFactor(gamesPlayed int) float64 {
	if gamesPlayed < 20 {
		return 32.0
	} else if gamesPlayed < 50 {
		return 24.0
	}
	return 16.0
}

// ExpectedScore ELO에 기반한 기대 승률 계산
func (s *ELOService) ExpectedScore(rating, opponentRating float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponentRating-rating)/400.0))
}

// CalculateNewRatings computes both post-game ratings for one game.
// scoreA is the result from A's side: ResultWin, ResultDraw or ResultLoss; the caller
// validates it. Each side moves by its own K-factor and the new values are rounded
// once with math.Round (halves away from zero).
func (s *ELOService) CalculateNewRatings(
	ratingA, ratingB int,
	gamesPlayedA, gamesPlayedB int,
	scoreA float64,
) (newRatingA, newRatingB, changeA, changeB int) {
	// both expectations are computed from their own side; they sum to 1
	expectedA := s.ExpectedScore(float64(ratingA), float64(ratingB))
	expectedB := s.ExpectedScore(float64(ratingB), float64(ratingA))

	scoreB := 1.0 - scoreA

	kA := s.GetKFactor(gamesPlayedA)
	kB := s.GetKFactor(gamesPlayedB)

	newRatingA = int(math.Round(float64(ratingA) + kA*(scoreA-expectedA)))
	newRatingB = int(math.Round(float64(ratingB) + kB*(scoreB-expectedB)))

	changeA = newRatingA - ratingA
	changeB = newRatingB - ratingB

	return
}

// RateGame rates one game from both players' standing before it and returns the
// before/after snapshot. scoreA must be ResultWin, ResultDraw or ResultLoss.
func (s *ELOService) RateGame(
	ratingA, ratingB int,
	gamesPlayedA, gamesPlayedB int,
	scoreA float64,
) (models.RatingSnapshot, error) {
	if !ValidResult(scoreA) {
		return models.RatingSnapshot{}, fmt.Errorf("%w: got %v", ErrInvalidResult, scoreA)
	}

	newA, newB, _, _ := s.CalculateNewRatings(ratingA, ratingB, gamesPlayedA, gamesPlayedB, scoreA)

	return models.RatingSnapshot{
		Player1Before: ratingA,
		Player1After:  newA,
		Player2Before: ratingB,
		Player2After:  newB,
	}, nil
}

// GameResult derives A's result from the two sides' total scores.
func GameResult(totalA, totalB int) float64 {
	if totalA > totalB {
		return ResultWin
	}
	if totalA < totalB {
		return ResultLoss
	}
	return ResultDraw
}

// ValidResult reports whether score is one of the three accepted result values.
func ValidResult(score float64) bool {
	return score == ResultWin || score == ResultDraw || score == ResultLoss
}
