package models

import "time"

// PrimaryOp is the operation a side declared as primary for the game.
type PrimaryOp string

const (
	PrimaryOpTac  PrimaryOp = "tacop"
	PrimaryOpCrit PrimaryOp = "critop"
	PrimaryOpKill PrimaryOp = "killop"
)

func (p PrimaryOp) Valid() bool {
	switch p {
	case PrimaryOpTac, PrimaryOpCrit, PrimaryOpKill:
		return true
	}
	return false
}

const (
	MinComponentScore = 0
	MaxComponentScore = 6
)

// GameSide is one participant's half of a game record.
type GameSide struct {
	PlayerID       int64     `json:"playerId" db:"player_id"`
	Killteam       string    `json:"killteam" db:"killteam"`
	TacOp          string    `json:"tacOp" db:"tac_op"`
	PrimaryOp      PrimaryOp `json:"primaryOp" db:"primary_op"`
	TacOpScore     int       `json:"tacOpScore" db:"tacop_score"`
	CritOpScore    int       `json:"critOpScore" db:"critop_score"`
	KillOpScore    int       `json:"killOpScore" db:"killop_score"`
	PrimaryOpScore int       `json:"primaryOpScore" db:"primary_op_score"`
	EloBefore      *int      `json:"eloBefore,omitempty" db:"elo_before"`
	EloAfter       *int      `json:"eloAfter,omitempty" db:"elo_after"`
}

// Total is the sum of the four component scores; it alone decides the result.
func (s GameSide) Total() int {
	return s.TacOpScore + s.CritOpScore + s.KillOpScore + s.PrimaryOpScore
}

// Rated reports whether the side carries a rating snapshot.
func (s GameSide) Rated() bool {
	return s.EloBefore != nil && s.EloAfter != nil
}

// DerivePrimaryOpScore returns ceil(half of the declared primary component).
func (s GameSide) DerivePrimaryOpScore() int {
	var component int
	switch s.PrimaryOp {
	case PrimaryOpTac:
		component = s.TacOpScore
	case PrimaryOpCrit:
		component = s.CritOpScore
	case PrimaryOpKill:
		component = s.KillOpScore
	default:
		return 0
	}
	return (component + 1) / 2
}

type Game struct {
	ID        int64     `json:"id" db:"id"`
	PlayedAt  time.Time `json:"playedAt" db:"played_at"`
	Country   string    `json:"country,omitempty" db:"country"`
	Killzone  string    `json:"killzone,omitempty" db:"killzone"`
	MapLayout string    `json:"mapLayout,omitempty" db:"map_layout"`
	CritOp    string    `json:"critOp,omitempty" db:"crit_op"`
	Player1   GameSide  `json:"player1"`
	Player2   GameSide  `json:"player2"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Side returns the side the player took in this game.
func (g *Game) Side(playerID int64) (side, opponent GameSide, ok bool) {
	switch playerID {
	case g.Player1.PlayerID:
		return g.Player1, g.Player2, true
	case g.Player2.PlayerID:
		return g.Player2, g.Player1, true
	}
	return GameSide{}, GameSide{}, false
}

// ApplySnapshot copies a rating snapshot onto both sides.
func (g *Game) ApplySnapshot(s RatingSnapshot) {
	g.Player1.EloBefore, g.Player1.EloAfter = intPtr(s.Player1Before), intPtr(s.Player1After)
	g.Player2.EloBefore, g.Player2.EloAfter = intPtr(s.Player2Before), intPtr(s.Player2After)
}

// ClearSnapshot drops the rating snapshot from both sides.
func (g *Game) ClearSnapshot() {
	g.Player1.EloBefore, g.Player1.EloAfter = nil, nil
	g.Player2.EloBefore, g.Player2.EloAfter = nil, nil
}

// RatingSnapshot is the before/after rating pair written onto a rated game.
type RatingSnapshot struct {
	Player1Before int `json:"player1Before"`
	Player1After  int `json:"player1After"`
	Player2Before int `json:"player2Before"`
	Player2After  int `json:"player2After"`
}

// GameFilter narrows game listings. Zero values mean "no filter".
type GameFilter struct {
	PlayerID int64
	Killteam string
	Country  string
	Limit    int
	Offset   int
}

type SubmitGameSide struct {
	Player      PlayerRef `json:"player"`
	Killteam    string    `json:"killteam" binding:"required"`
	TacOp       string    `json:"tacOp"`
	PrimaryOp   PrimaryOp `json:"primaryOp" binding:"required"`
	TacOpScore  int       `json:"tacOpScore"`
	CritOpScore int       `json:"critOpScore"`
	KillOpScore int       `json:"killOpScore"`
}

type SubmitGameRequest struct {
	Country           string         `json:"country"`
	Killzone          string         `json:"killzone"`
	MapLayout         string         `json:"mapLayout"`
	CritOp            string         `json:"critOp"`
	PlayedAt          *time.Time     `json:"playedAt,omitempty"`
	AnonymousOpponent bool           `json:"anonymousOpponent"`
	Player1           SubmitGameSide `json:"player1" binding:"required"`
	Player2           SubmitGameSide `json:"player2" binding:"required"`
}

func intPtr(v int) *int {
	return &v
}
