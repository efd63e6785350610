package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/internal/repository"
)

// racingPlayers reports a duplicate on Create, as if another request won the race.
type racingPlayers struct {
	repository.PlayerStore
	winner *models.Player
	raced  bool
}

func (r *racingPlayers) FindByTag(ctx context.Context, tag string) (*models.Player, error) {
	if !r.raced {
		return nil, nil
	}
	return r.winner, nil
}

func (r *racingPlayers) Create(ctx context.Context, tag string) (*models.Player, error) {
	r.raced = true
	return nil, repository.ErrDuplicateTag
}

func TestPlayerService_GetOrCreateByTag(t *testing.T) {
	db := newMemoryDB()
	svc := NewPlayerService(db.Stores().Players)
	ctx := context.Background()

	created, err := svc.GetOrCreateByTag(ctx, "  Alpha ")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", created.Tag)
	assert.Equal(t, models.DefaultEloRating, created.EloRating)

	again, err := svc.GetOrCreateByTag(ctx, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	_, err = svc.GetOrCreateByTag(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.GetOrCreateByTag(ctx, strings.Repeat("x", maxTagLength+1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	anonymous, err := svc.Anonymous(ctx)
	require.NoError(t, err)
	assert.True(t, anonymous.IsAnonymous())

	players, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 2)
}

func TestPlayerService_GetOrCreateByTagLosesRace(t *testing.T) {
	winner := &models.Player{ID: 7, Tag: "Alpha", EloRating: models.DefaultEloRating}
	svc := NewPlayerService(&racingPlayers{winner: winner})

	player, err := svc.GetOrCreateByTag(context.Background(), "Alpha")
	require.NoError(t, err)
	assert.Equal(t, winner, player)
}

func TestPlayerService_Resolve(t *testing.T) {
	db := newMemoryDB()
	svc := NewPlayerService(db.Stores().Players)
	ctx := context.Background()

	alpha, err := svc.GetOrCreateByTag(ctx, "Alpha")
	require.NoError(t, err)

	byID, err := svc.Resolve(ctx, models.PlayerRef{ID: &alpha.ID})
	require.NoError(t, err)
	assert.Equal(t, alpha.ID, byID.ID)

	missing := int64(99)
	_, err = svc.Resolve(ctx, models.PlayerRef{ID: &missing})
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	fallback, err := svc.Resolve(ctx, models.PlayerRef{ID: &missing, Tag: "Bravo"})
	require.NoError(t, err)
	assert.Equal(t, "Bravo", fallback.Tag)

	_, err = svc.GetByID(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
}
