package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNavStateRepo(t *testing.T) (*RedisNavStateRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisNavStateRepository(client), mr
}

func TestNavStateRoundTrip(t *testing.T) {
	repo, _ := newNavStateRepo(t)
	ctx := context.Background()

	state := domain.NavState{View: "charts", SelectedExercise: 2}
	require.NoError(t, repo.Save(ctx, "u1", state))

	loaded, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, state, *loaded)
}

func TestNavStateMissingUser(t *testing.T) {
	repo, _ := newNavStateRepo(t)

	_, err := repo.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNavStateClear(t *testing.T) {
	repo, _ := newNavStateRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", domain.NavState{View: "workout"}))
	require.NoError(t, repo.Clear(ctx, "u1"))

	_, err := repo.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNavStateCorruptedPayload(t *testing.T) {
	repo, mr := newNavStateRepo(t)

	require.NoError(t, mr.Set("nav_state:u1", "{not json"))

	_, err := repo.Load(context.Background(), "u1")
	assert.Error(t, err)
}

func TestNavStateExpires(t *testing.T) {
	repo, mr := newNavStateRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", domain.NavState{View: "workout"}))
	mr.FastForward(navStateTTL + 1)

	_, err := repo.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
