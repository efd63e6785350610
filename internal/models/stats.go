package models

import "time"

// PlayerStanding is one leaderboard row.
type PlayerStanding struct {
	PlayerID    int64   `json:"playerId"`
	Tag         string  `json:"playertag"`
	EloRating   int     `json:"eloRating"`
	GamesPlayed int     `json:"gamesPlayed"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	WinRate     float64 `json:"winRate"`
	AvgScore    float64 `json:"avgScore"`
	MedianScore float64 `json:"medianScore"`
}

// FactionStanding aggregates results per killteam.
type FactionStanding struct {
	Killteam string  `json:"killteam"`
	Games    int     `json:"games"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Draws    int     `json:"draws"`
	WinRate  float64 `json:"winRate"`
	AvgScore float64 `json:"avgScore"`
}

type RatingPoint struct {
	GameID   int64     `json:"gameId"`
	PlayedAt time.Time `json:"playedAt"`
	Before   int       `json:"before"`
	After    int       `json:"after"`
}

type PlayerDetails struct {
	Player        *Player           `json:"player"`
	Standing      PlayerStanding    `json:"standing"`
	Factions      []FactionStanding `json:"factions"`
	RatingHistory []RatingPoint     `json:"ratingHistory"`
}

type StatsOverview struct {
	TotalGames int               `json:"totalGames"`
	Players    []PlayerStanding  `json:"players"`
	Factions   []FactionStanding `json:"factions"`
}

type LeaderboardFilter struct {
	Country  string
	Search   string
	MinGames int
	Limit    int
}

// RatingDrift compares a stored rating against what a full replay would produce.
type RatingDrift struct {
	PlayerID            int64  `json:"playerId"`
	Tag                 string `json:"playertag"`
	StoredRating        int    `json:"storedRating"`
	ReplayedRating      int    `json:"replayedRating"`
	StoredGamesPlayed   int    `json:"storedGamesPlayed"`
	ReplayedGamesPlayed int    `json:"replayedGamesPlayed"`
}
