package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	navStateKeyPrefix = "nav_state:"
	navStateTTL       = 24 * time.Hour
)

// RedisNavStateRepository persists the UI-navigation sub-state between
// process runs. This data is cosmetic; every error path here is recoverable
// by falling back to defaults.
type RedisNavStateRepository struct {
	client *redis.Client
}

func NewRedisNavStateRepository(client *redis.Client) *RedisNavStateRepository {
	return &RedisNavStateRepository{
		client: client,
	}
}

func (r *RedisNavStateRepository) Save(ctx context.Context, userID string, state domain.NavState) error {
	key := navStateKeyPrefix + userID

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal nav state: %w", err)
	}

	if err := r.client.Set(ctx, key, data, navStateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save nav state: %w", err)
	}
	return nil
}

func (r *RedisNavStateRepository) Load(ctx context.Context, userID string) (*domain.NavState, error) {
	key := navStateKeyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load nav state: %w", err)
	}

	var state domain.NavState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nav state: %w", err)
	}
	return &state, nil
}

func (r *RedisNavStateRepository) Clear(ctx context.Context, userID string) error {
	return r.client.Del(ctx, navStateKeyPrefix+userID).Err()
}
