package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/pkg/database"
)

const playerColumns = `id, playertag, elo_rating, games_played, created_at`

type PlayerRepository struct {
	db DBTX
}

func NewPlayerRepository(db DBTX) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create 새 플레이어 생성 (기본 레이팅)
func (r *PlayerRepository) Create(ctx context.Context, tag string) (*models.Player, error) {
	query := `
		INSERT INTO players (playertag, elo_rating, games_played)
		VALUES ($1, $2, 0)
		RETURNING id
	`

	var id int64
	if err := r.db.QueryRowContext(ctx, query, tag, models.DefaultEloRating).Scan(&id); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateTag
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return r.FindByID(ctx, id)
}

// FindByID ID로 플레이어 찾기
func (r *PlayerRepository) FindByID(ctx context.Context, id int64) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}

	return player, nil
}

// FindByTag 태그로 플레이어 찾기
func (r *PlayerRepository) FindByTag(ctx context.Context, tag string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE playertag = $1`

	player, err := scanPlayer(r.db.QueryRowContext(ctx, query, tag))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find player by tag: %w", err)
	}

	return player, nil
}

// FindAll 모든 플레이어 조회 (레이팅 내림차순)
func (r *PlayerRepository) FindAll(ctx context.Context) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY elo_rating DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}

	return players, nil
}

// UpdateRating 플레이어 레이팅 및 경기 수 저장
func (r *PlayerRepository) UpdateRating(ctx context.Context, id int64, rating, gamesPlayed int) error {
	query := `
		UPDATE players
		SET elo_rating = $1,
		    games_played = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, rating, gamesPlayed, id)
	if err != nil {
		return fmt.Errorf("failed to update player rating: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update player rating: player %d not found", id)
	}

	return nil
}

// ResetRatings 모든 플레이어 레이팅 초기화
func (r *PlayerRepository) ResetRatings(ctx context.Context, rating int) error {
	query := `UPDATE players SET elo_rating = $1, games_played = 0`

	if _, err := r.db.ExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("failed to reset player ratings: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlayer(row rowScanner) (*models.Player, error) {
	player := &models.Player{}
	err := row.Scan(
		&player.ID,
		&player.Tag,
		&player.EloRating,
		&player.GamesPlayed,
		&player.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return player, nil
}
