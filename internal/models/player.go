package models

import "time"

const (
	// DefaultEloRating is the rating every player starts from and returns to on recalculation.
	DefaultEloRating = 1200

	// AnonymousTag identifies the shared placeholder used when an opponent is not tracked.
	AnonymousTag = "Anonymous"
)

type Player struct {
	ID          int64     `json:"id" db:"id"`
	Tag         string    `json:"playertag" db:"playertag"`
	EloRating   int       `json:"eloRating" db:"elo_rating"`
	GamesPlayed int       `json:"gamesPlayed" db:"games_played"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// IsAnonymous reports whether the player is the untracked-opponent placeholder.
func (p *Player) IsAnonymous() bool {
	return p.Tag == AnonymousTag
}

// PlayerRef names a game participant either by id or by tag.
type PlayerRef struct {
	ID  *int64 `json:"id,omitempty"`
	Tag string `json:"playertag,omitempty"`
}
