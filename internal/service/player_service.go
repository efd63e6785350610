package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/internal/repository"
	"github.com/ktladder/ktladder-backend/pkg/logger"
)

const maxTagLength = 64

type PlayerService struct {
	players repository.PlayerStore
}

func NewPlayerService(players repository.PlayerStore) *PlayerService {
	return &PlayerService{
		players: players,
	}
}

// GetByID ID로 플레이어 조회
func (s *PlayerService) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	player, err := s.players.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	return player, nil
}

// List 전체 플레이어 목록
func (s *PlayerService) List(ctx context.Context) ([]*models.Player, error) {
	players, err := s.players.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	return players, nil
}

// GetOrCreateByTag looks the tag up and creates the player only when it is unknown.
// The tag is unique in storage; losing a concurrent create falls back to the lookup.
func (s *PlayerService) GetOrCreateByTag(ctx context.Context, tag string) (*models.Player, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || len(tag) > maxTagLength {
		return nil, fmt.Errorf("playertag must be 1-%d characters: %w", maxTagLength, ErrInvalidInput)
	}

	player, err := s.players.FindByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}
	if player != nil {
		return player, nil
	}

	player, err = s.players.Create(ctx, tag)
	if errors.Is(err, repository.ErrDuplicateTag) {
		player, err = s.players.FindByTag(ctx, tag)
		if err == nil && player == nil {
			err = ErrPlayerNotFound
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	logger.Info("Player created", "playerId", player.ID, "playertag", player.Tag)

	return player, nil
}

// Resolve finds a participant by id, falling back to the tag when the id is unknown
// or absent.
func (s *PlayerService) Resolve(ctx context.Context, ref models.PlayerRef) (*models.Player, error) {
	if ref.ID != nil {
		player, err := s.players.FindByID(ctx, *ref.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to find player: %w", err)
		}
		if player != nil {
			return player, nil
		}
		if strings.TrimSpace(ref.Tag) == "" {
			return nil, ErrPlayerNotFound
		}
	}

	return s.GetOrCreateByTag(ctx, ref.Tag)
}

// Anonymous returns the shared placeholder opponent, creating it on first use.
// The placeholder is rated like any other player.
func (s *PlayerService) Anonymous(ctx context.Context) (*models.Player, error) {
	return s.GetOrCreateByTag(ctx, models.AnonymousTag)
}
