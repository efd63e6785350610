package service

import (
	"fmt"
	"sort"

	"github.com/ktladder/ktladder-backend/internal/models"
)

// RatingLedger is the running state of a chronological replay: current rating and
// rated-game count per player. Players absent from the ledger hold the initial rating
// and zero games. It is a scratchpad for one replay and is not safe for concurrent use.
type RatingLedger struct {
	elo     *ELOService
	ratings map[int64]int
	played  map[int64]int
}

func NewRatingLedger(elo *ELOService) *RatingLedger {
	return &RatingLedger{
		elo:     elo,
		ratings: make(map[int64]int),
		played:  make(map[int64]int),
	}
}

// Standing returns the running rating and games played for a player.
func (l *RatingLedger) Standing(playerID int64) (rating, gamesPlayed int) {
	rating, ok := l.ratings[playerID]
	if !ok {
		rating = l.elo.InitialRating()
	}
	return rating, l.played[playerID]
}

// Apply rates one game against the running state, advances the state and returns
// the snapshot to persist on the game. Games must be applied in chronological order.
// On error the state is left untouched.
func (l *RatingLedger) Apply(game *models.Game) (models.RatingSnapshot, error) {
	p1, p2 := game.Player1.PlayerID, game.Player2.PlayerID

	rating1, played1 := l.Standing(p1)
	rating2, played2 := l.Standing(p2)

	result := GameResult(game.Player1.Total(), game.Player2.Total())
	snapshot, err := l.elo.RateGame(rating1, rating2, played1, played2, result)
	if err != nil {
		return models.RatingSnapshot{}, fmt.Errorf("game %d: %w", game.ID, err)
	}

	l.ratings[p1], l.played[p1] = snapshot.Player1After, played1+1
	l.ratings[p2], l.played[p2] = snapshot.Player2After, played2+1

	return snapshot, nil
}

// Players lists every player the ledger has seen, in id order.
func (l *RatingLedger) Players() []int64 {
	ids := make([]int64, 0, len(l.ratings))
	for id := range l.ratings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ReplayGames folds an ordered game history into a fresh ledger and returns it together
// with the snapshot produced for each game, index-aligned with games.
func ReplayGames(elo *ELOService, games []*models.Game) (*RatingLedger, []models.RatingSnapshot, error) {
	ledger := NewRatingLedger(elo)
	snapshots := make([]models.RatingSnapshot, len(games))
	for i, game := range games {
		snapshot, err := ledger.Apply(game)
		if err != nil {
			return nil, nil, err
		}
		snapshots[i] = snapshot
	}
	return ledger, snapshots, nil
}
