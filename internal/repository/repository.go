package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/pkg/database"
)

var ErrDuplicateTag = errors.New("playertag already exists")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type PlayerStore interface {
	Create(ctx context.Context, tag string) (*models.Player, error)
	FindByID(ctx context.Context, id int64) (*models.Player, error)
	FindByTag(ctx context.Context, tag string) (*models.Player, error)
	FindAll(ctx context.Context) ([]*models.Player, error)
	UpdateRating(ctx context.Context, id int64, rating, gamesPlayed int) error
	ResetRatings(ctx context.Context, rating int) error
}

type GameStore interface {
	Create(ctx context.Context, game *models.Game) (*models.Game, error)
	FindByID(ctx context.Context, id int64) (*models.Game, error)
	Find(ctx context.Context, filter models.GameFilter) ([]*models.Game, error)
	FindAllChronological(ctx context.Context) ([]*models.Game, error)
	UpdateRatingSnapshot(ctx context.Context, id int64, snapshot models.RatingSnapshot) error
	ClearRatingSnapshots(ctx context.Context) error
}

// Stores groups the repositories bound to one connection or transaction.
type Stores struct {
	Players PlayerStore
	Games   GameStore
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(stores Stores) error) error
}

// Store hands out repositories on the shared pool and runs transactional units of work.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Stores() Stores {
	return Stores{
		Players: NewPlayerRepository(s.db),
		Games:   NewGameRepository(s.db),
	}
}

// WithinTx runs fn in a transaction and commits only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(stores Stores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(Stores{
		Players: NewPlayerRepository(tx),
		Games:   NewGameRepository(tx),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
