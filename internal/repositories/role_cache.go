package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// RoleCacheRepository provides cached role assignments using Redis
type RoleCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration duration for cached roles
}

// NewRoleCacheRepository creates a new repository instance with the given TTL
func NewRoleCacheRepository(client *redis.Client, expiration time.Duration) *RoleCacheRepository {
	return &RoleCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func roleKey(chamaID, memberID uuid.UUID) string {
	return fmt.Sprintf("role:%s:%s", chamaID, memberID)
}

// GetRole fetches a cached role assignment
func (r *RoleCacheRepository) GetRole(ctx context.Context, chamaID, memberID uuid.UUID) (models.Role, error) {
	key := roleKey(chamaID, memberID)

	val, err := r.client.Get(ctx, key).Result()

	logger.Log.Infow(
		"key", key,
		"result", val,
		"error", err,
	)

	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("role not found in cache for %s", key)
		}
		return "", err
	}
	return models.Role(val), nil
}

// SetRole caches a role assignment with expiration
func (r *RoleCacheRepository) SetRole(ctx context.Context, chamaID, memberID uuid.UUID, role models.Role) error {
	key := roleKey(chamaID, memberID)
	err := r.client.Set(ctx, key, string(role), r.exp).Err()

	logger.Log.Infow(
		"key", key,
		"role", role,
		"error", err,
	)

	return err
}

// Invalidate drops a cached role assignment after a role change.
func (r *RoleCacheRepository) Invalidate(ctx context.Context, chamaID, memberID uuid.UUID) error {
	key := roleKey(chamaID, memberID)
	err := r.client.Del(ctx, key).Err()

	logger.Log.Infow(
		"key", key,
		"error", err,
	)

	return err
}
