package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/internal/repository"
)

// StatsService 리더보드 및 통계 집계 서비스
//
// All figures are derived from stored games; the anonymous placeholder never appears
// in player listings even though its games count for the real opponent.
type StatsService struct {
	players repository.PlayerStore
	games   repository.GameStore
}

func NewStatsService(players repository.PlayerStore, games repository.GameStore) *StatsService {
	return &StatsService{
		players: players,
		games:   games,
	}
}

// Leaderboard ranks players by rating, then wins, then tag.
// With a country filter only games played in that country are tallied and only
// players who played there are listed.
func (s *StatsService) Leaderboard(ctx context.Context, filter models.LeaderboardFilter) ([]models.PlayerStanding, error) {
	players, games, err := s.load(ctx, models.GameFilter{Country: filter.Country})
	if err != nil {
		return nil, err
	}

	tally := newStandingTally(players)
	for _, game := range games {
		tally.add(game)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	standings := make([]models.PlayerStanding, 0, len(players))
	for _, standing := range tally.standings(filter.Country == "") {
		if standing.GamesPlayed < filter.MinGames {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(standing.Tag), search) {
			continue
		}
		standings = append(standings, standing)
	}

	if filter.Limit > 0 && len(standings) > filter.Limit {
		standings = standings[:filter.Limit]
	}

	return standings, nil
}

// FactionStats aggregates results per killteam, most played first.
func (s *StatsService) FactionStats(ctx context.Context, country string) ([]models.FactionStanding, error) {
	games, err := s.games.Find(ctx, models.GameFilter{Country: country})
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}

	tally := newFactionTally()
	for _, game := range games {
		tally.add(game.Player1, game.Player2)
		tally.add(game.Player2, game.Player1)
	}

	return tally.standings(), nil
}

// Overview 전체 통계 요약
func (s *StatsService) Overview(ctx context.Context) (*models.StatsOverview, error) {
	players, games, err := s.load(ctx, models.GameFilter{})
	if err != nil {
		return nil, err
	}

	playerTally := newStandingTally(players)
	factionTally := newFactionTally()
	for _, game := range games {
		playerTally.add(game)
		factionTally.add(game.Player1, game.Player2)
		factionTally.add(game.Player2, game.Player1)
	}

	return &models.StatsOverview{
		TotalGames: len(games),
		Players:    playerTally.standings(true),
		Factions:   factionTally.standings(),
	}, nil
}

// PlayerDetails returns a player's record, per-killteam breakdown and rating history
// in the order the games were played.
func (s *StatsService) PlayerDetails(ctx context.Context, id int64) (*models.PlayerDetails, error) {
	player, err := s.players.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	games, err := s.games.Find(ctx, models.GameFilter{PlayerID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}

	// Find returns newest first
	for i, j := 0, len(games)-1; i < j; i, j = i+1, j-1 {
		games[i], games[j] = games[j], games[i]
	}

	tally := newStandingTally([]*models.Player{player})
	factions := newFactionTally()
	history := make([]models.RatingPoint, 0, len(games))

	for _, game := range games {
		tally.add(game)

		side, opponent, ok := game.Side(id)
		if !ok {
			continue
		}
		factions.add(side, opponent)

		if side.Rated() {
			history = append(history, models.RatingPoint{
				GameID:   game.ID,
				PlayedAt: game.PlayedAt,
				Before:   *side.EloBefore,
				After:    *side.EloAfter,
			})
		}
	}

	details := &models.PlayerDetails{
		Player:        player,
		Standing:      tally.standing(player),
		Factions:      factions.standings(),
		RatingHistory: history,
	}

	return details, nil
}

// load fetches players and games concurrently.
func (s *StatsService) load(ctx context.Context, filter models.GameFilter) ([]*models.Player, []*models.Game, error) {
	var (
		players []*models.Player
		games   []*models.Game
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		players, err = s.players.FindAll(gCtx)
		return err
	})

	g.Go(func() error {
		var err error
		games, err = s.games.Find(gCtx, filter)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to load stats data: %w", err)
	}

	return players, games, nil
}

type record struct {
	wins, losses, draws int
	totals              []float64
}

func (r *record) add(own, opponent models.GameSide) {
	switch GameResult(own.Total(), opponent.Total()) {
	case ResultWin:
		r.wins++
	case ResultLoss:
		r.losses++
	default:
		r.draws++
	}
	r.totals = append(r.totals, float64(own.Total()))
}

func (r *record) games() int {
	return r.wins + r.losses + r.draws
}

// winRate is the share of wins in percent, one decimal.
func (r *record) winRate() float64 {
	if r.games() == 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(r.wins * 100)).Div(decimal.NewFromInt(int64(r.games())))
	return rate.Round(1).InexactFloat64()
}

func (r *record) avgScore() float64 {
	mean, err := stats.Mean(r.totals)
	if err != nil {
		return 0
	}
	return decimal.NewFromFloat(mean).Round(1).InexactFloat64()
}

func (r *record) medianScore() float64 {
	median, err := stats.Median(r.totals)
	if err != nil {
		return 0
	}
	return median
}

type standingTally struct {
	players map[int64]*models.Player
	records map[int64]*record
}

func newStandingTally(players []*models.Player) *standingTally {
	t := &standingTally{
		players: make(map[int64]*models.Player, len(players)),
		records: make(map[int64]*record),
	}
	for _, p := range players {
		t.players[p.ID] = p
	}
	return t
}

func (t *standingTally) add(game *models.Game) {
	t.record(game.Player1.PlayerID).add(game.Player1, game.Player2)
	t.record(game.Player2.PlayerID).add(game.Player2, game.Player1)
}

func (t *standingTally) record(id int64) *record {
	r, ok := t.records[id]
	if !ok {
		r = &record{}
		t.records[id] = r
	}
	return r
}

func (t *standingTally) standing(p *models.Player) models.PlayerStanding {
	r := t.record(p.ID)
	return models.PlayerStanding{
		PlayerID:    p.ID,
		Tag:         p.Tag,
		EloRating:   p.EloRating,
		GamesPlayed: r.games(),
		Wins:        r.wins,
		Losses:      r.losses,
		Draws:       r.draws,
		WinRate:     r.winRate(),
		AvgScore:    r.avgScore(),
		MedianScore: r.medianScore(),
	}
}

// standings lists known players, skipping the anonymous placeholder. Players without
// tallied games are kept only when includeIdle is set.
func (t *standingTally) standings(includeIdle bool) []models.PlayerStanding {
	out := make([]models.PlayerStanding, 0, len(t.players))
	for id, p := range t.players {
		if p.IsAnonymous() {
			continue
		}
		if _, played := t.records[id]; !played && !includeIdle {
			continue
		}
		out = append(out, t.standing(p))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EloRating != out[j].EloRating {
			return out[i].EloRating > out[j].EloRating
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Tag < out[j].Tag
	})

	return out
}

type factionTally struct {
	records map[string]*record
}

func newFactionTally() *factionTally {
	return &factionTally{records: make(map[string]*record)}
}

func (t *factionTally) add(own, opponent models.GameSide) {
	if own.Killteam == "" {
		return
	}
	r, ok := t.records[own.Killteam]
	if !ok {
		r = &record{}
		t.records[own.Killteam] = r
	}
	r.add(own, opponent)
}

func (t *factionTally) standings() []models.FactionStanding {
	out := make([]models.FactionStanding, 0, len(t.records))
	for killteam, r := range t.records {
		out = append(out, models.FactionStanding{
			Killteam: killteam,
			Games:    r.games(),
			Wins:     r.wins,
			Losses:   r.losses,
			Draws:    r.draws,
			WinRate:  r.winRate(),
			AvgScore: r.avgScore(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].Killteam < out[j].Killteam
	})

	return out
}
