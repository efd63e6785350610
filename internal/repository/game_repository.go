package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ktladder/ktladder-backend/internal/models"
)

const gameColumns = `
	id, played_at, country, killzone, map_layout, crit_op,
	player1_id, player1_killteam, player1_tac_op, player1_primary_op,
	player1_tacop_score, player1_critop_score, player1_killop_score, player1_primary_op_score,
	player1_elo_before, player1_elo_after,
	player2_id, player2_killteam, player2_tac_op, player2_primary_op,
	player2_tacop_score, player2_critop_score, player2_killop_score, player2_primary_op_score,
	player2_elo_before, player2_elo_after,
	created_at`

type GameRepository struct {
	db DBTX
}

func NewGameRepository(db DBTX) *GameRepository {
	return &GameRepository{db: db}
}

// Create 새 게임 기록 (레이팅 스냅샷 없이)
func (r *GameRepository) Create(ctx context.Context, game *models.Game) (*models.Game, error) {
	query := `
		INSERT INTO games (
			played_at, country, killzone, map_layout, crit_op,
			player1_id, player1_killteam, player1_tac_op, player1_primary_op,
			player1_tacop_score, player1_critop_score, player1_killop_score, player1_primary_op_score,
			player2_id, player2_killteam, player2_tac_op, player2_primary_op,
			player2_tacop_score, player2_critop_score, player2_killop_score, player2_primary_op_score,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`

	now := time.Now().UTC().Truncate(time.Microsecond)
	playedAt := game.PlayedAt
	if playedAt.IsZero() {
		playedAt = now
	}

	p1, p2 := game.Player1, game.Player2
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		playedAt.UTC().Truncate(time.Microsecond),
		game.Country,
		game.Killzone,
		game.MapLayout,
		game.CritOp,
		p1.PlayerID, p1.Killteam, p1.TacOp, string(p1.PrimaryOp),
		p1.TacOpScore, p1.CritOpScore, p1.KillOpScore, p1.PrimaryOpScore,
		p2.PlayerID, p2.Killteam, p2.TacOp, string(p2.PrimaryOp),
		p2.TacOpScore, p2.CritOpScore, p2.KillOpScore, p2.PrimaryOpScore,
		now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	return r.FindByID(ctx, id)
}

// FindByID ID로 게임 찾기
func (r *GameRepository) FindByID(ctx context.Context, id int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find game: %w", err)
	}

	return game, nil
}

// Find 필터 조건으로 게임 목록 조회 (최신순)
func (r *GameRepository) Find(ctx context.Context, filter models.GameFilter) ([]*models.Game, error) {
	var (
		conditions []string
		args       []interface{}
	)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PlayerID != 0 {
		p := arg(filter.PlayerID)
		conditions = append(conditions, fmt.Sprintf("(player1_id = %s OR player2_id = %s)", p, p))
	}
	if filter.Killteam != "" {
		k := arg(filter.Killteam)
		conditions = append(conditions, fmt.Sprintf("(player1_killteam = %s OR player2_killteam = %s)", k, k))
	}
	if filter.Country != "" {
		conditions = append(conditions, "country = "+arg(filter.Country))
	}

	query := `SELECT ` + gameColumns + ` FROM games`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY played_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
		query += " OFFSET " + arg(filter.Offset)
	}

	return r.query(ctx, query, args...)
}

// FindAllChronological 전체 게임 기록 (재계산용 시간순, id로 동률 처리)
func (r *GameRepository) FindAllChronological(ctx context.Context) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY played_at ASC, id ASC`
	return r.query(ctx, query)
}

// UpdateRatingSnapshot 게임에 레이팅 전후 값 저장
func (r *GameRepository) UpdateRatingSnapshot(ctx context.Context, id int64, snapshot models.RatingSnapshot) error {
	query := `
		UPDATE games
		SET player1_elo_before = $1,
		    player1_elo_after = $2,
		    player2_elo_before = $3,
		    player2_elo_after = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		snapshot.Player1Before,
		snapshot.Player1After,
		snapshot.Player2Before,
		snapshot.Player2After,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update rating snapshot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update rating snapshot: game %d not found", id)
	}

	return nil
}

// ClearRatingSnapshots 모든 게임의 레이팅 스냅샷 제거
func (r *GameRepository) ClearRatingSnapshots(ctx context.Context) error {
	query := `
		UPDATE games
		SET player1_elo_before = NULL,
		    player1_elo_after = NULL,
		    player2_elo_before = NULL,
		    player2_elo_after = NULL
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear rating snapshots: %w", err)
	}

	return nil
}

func (r *GameRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}

	return games, nil
}

func scanGame(row rowScanner) (*models.Game, error) {
	game := &models.Game{}
	var primary1, primary2 string

	err := row.Scan(
		&game.ID,
		&game.PlayedAt,
		&game.Country,
		&game.Killzone,
		&game.MapLayout,
		&game.CritOp,
		&game.Player1.PlayerID,
		&game.Player1.Killteam,
		&game.Player1.TacOp,
		&primary1,
		&game.Player1.TacOpScore,
		&game.Player1.CritOpScore,
		&game.Player1.KillOpScore,
		&game.Player1.PrimaryOpScore,
		&game.Player1.EloBefore,
		&game.Player1.EloAfter,
		&game.Player2.PlayerID,
		&game.Player2.Killteam,
		&game.Player2.TacOp,
		&primary2,
		&game.Player2.TacOpScore,
		&game.Player2.CritOpScore,
		&game.Player2.KillOpScore,
		&game.Player2.PrimaryOpScore,
		&game.Player2.EloBefore,
		&game.Player2.EloAfter,
		&game.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	game.Player1.PrimaryOp = models.PrimaryOp(primary1)
	game.Player2.PrimaryOp = models.PrimaryOp(primary2)

	return game, nil
}
