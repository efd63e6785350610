package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktladder/ktladder-backend/internal/models"
)

// statsFixture plays three rated games:
//
//	Alpha (Kommandos) 10 - 7 Bravo (Kasrkin), DE
//	Alpha (Kommandos)  8 - 8 Charlie (Kasrkin), FR
//	Bravo (Kasrkin)    9 - 4 Anonymous (Kommandos), DE
func statsFixture(t *testing.T) (*StatsService, *ladderFixture) {
	t.Helper()

	f := newLadderFixture(t, "Alpha", "Bravo", "Charlie", models.AnonymousTag)
	ctx := context.Background()

	add := func(country, a, ka string, totalA int, b, kb string, totalB int, at time.Time) {
		game := &models.Game{
			PlayedAt: at,
			Country:  country,
			Player1:  models.GameSide{PlayerID: f.players[a].ID, Killteam: ka, PrimaryOp: models.PrimaryOpCrit, TacOpScore: 4, CritOpScore: totalA - 4},
			Player2:  models.GameSide{PlayerID: f.players[b].ID, Killteam: kb, PrimaryOp: models.PrimaryOpCrit, TacOpScore: 4, CritOpScore: totalB - 4},
		}
		_, err := f.db.Stores().Games.Create(ctx, game)
		require.NoError(t, err)
	}

	add("DE", "Alpha", "Kommandos", 10, "Bravo", "Kasrkin", 7, day0)
	add("FR", "Alpha", "Kommandos", 8, "Charlie", "Kasrkin", 8, day0.Add(time.Hour))
	add("DE", "Bravo", "Kasrkin", 9, models.AnonymousTag, "Kommandos", 4, day0.Add(2*time.Hour))

	_, err := f.service(nil).RecalculateAll(ctx)
	require.NoError(t, err)

	stores := f.db.Stores()
	return NewStatsService(stores.Players, stores.Games), f
}

func tags(standings []models.PlayerStanding) []string {
	out := make([]string, len(standings))
	for i, s := range standings {
		out[i] = s.Tag
	}
	return out
}

func TestStatsService_Leaderboard(t *testing.T) {
	svc, _ := statsFixture(t)
	ctx := context.Background()

	board, err := svc.Leaderboard(ctx, models.LeaderboardFilter{})
	require.NoError(t, err)

	// Bravo and Charlie share 1201; Bravo has more wins
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, tags(board))

	alpha := board[0]
	assert.Equal(t, 1215, alpha.EloRating)
	assert.Equal(t, 2, alpha.GamesPlayed)
	assert.Equal(t, 1, alpha.Wins)
	assert.Equal(t, 1, alpha.Draws)
	assert.Equal(t, 50.0, alpha.WinRate)
	assert.Equal(t, 9.0, alpha.AvgScore)
	assert.Equal(t, 9.0, alpha.MedianScore)

	bravo := board[1]
	assert.Equal(t, 1201, bravo.EloRating)
	assert.Equal(t, 1, bravo.Losses)
	assert.Equal(t, 8.0, bravo.AvgScore)
}

func TestStatsService_LeaderboardFilters(t *testing.T) {
	svc, _ := statsFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		filter   models.LeaderboardFilter
		expected []string
	}{
		{"country", models.LeaderboardFilter{Country: "DE"}, []string{"Alpha", "Bravo"}},
		{"min games", models.LeaderboardFilter{MinGames: 2}, []string{"Alpha", "Bravo"}},
		{"search", models.LeaderboardFilter{Search: "AR"}, []string{"Charlie"}},
		{"limit", models.LeaderboardFilter{Limit: 1}, []string{"Alpha"}},
		{"unknown country", models.LeaderboardFilter{Country: "JP"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, err := svc.Leaderboard(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tags(board))
		})
	}

	board, err := svc.Leaderboard(ctx, models.LeaderboardFilter{Country: "DE"})
	require.NoError(t, err)
	assert.Equal(t, 1, board[0].GamesPlayed, "only DE games are tallied")
}

func TestStatsService_FactionStats(t *testing.T) {
	svc, _ := statsFixture(t)

	factions, err := svc.FactionStats(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, factions, 2)

	assert.Equal(t, models.FactionStanding{
		Killteam: "Kasrkin", Games: 3, Wins: 1, Losses: 1, Draws: 1, WinRate: 33.3, AvgScore: 8,
	}, factions[0])
	assert.Equal(t, models.FactionStanding{
		Killteam: "Kommandos", Games: 3, Wins: 1, Losses: 1, Draws: 1, WinRate: 33.3, AvgScore: 7.3,
	}, factions[1])

	fr, err := svc.FactionStats(context.Background(), "FR")
	require.NoError(t, err)
	require.Len(t, fr, 2)
	assert.Equal(t, 1, fr[0].Draws)
}

func TestStatsService_PlayerDetails(t *testing.T) {
	svc, f := statsFixture(t)
	ctx := context.Background()

	details, err := svc.PlayerDetails(ctx, f.players["Alpha"].ID)
	require.NoError(t, err)

	assert.Equal(t, 1215, details.Player.EloRating)
	assert.Equal(t, 2, details.Standing.GamesPlayed)
	assert.Equal(t, 50.0, details.Standing.WinRate)
	require.Len(t, details.Factions, 1)
	assert.Equal(t, "Kommandos", details.Factions[0].Killteam)

	require.Len(t, details.RatingHistory, 2)
	assert.Equal(t, 1200, details.RatingHistory[0].Before)
	assert.Equal(t, 1216, details.RatingHistory[0].After)
	assert.Equal(t, 1216, details.RatingHistory[1].Before)
	assert.Equal(t, 1215, details.RatingHistory[1].After)

	_, err = svc.PlayerDetails(ctx, 999)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestStatsService_Overview(t *testing.T) {
	svc, _ := statsFixture(t)

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, overview.TotalGames)
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, tags(overview.Players))
	assert.Len(t, overview.Factions, 2)
}
