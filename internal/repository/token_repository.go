package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/taskboard/internal/infrastructure/redis"
)

// TokenRepository tracks which issued token IDs are still live. A token
// that validates cryptographically but is missing here has been revoked or
// has expired out of the store.
type TokenRepository interface {
	Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	IsLive(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string) error
}

// RedisTokenRepository implements TokenRepository over Redis, keyed
// token:<jti> with the token's lifetime as the key TTL.
type RedisTokenRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisTokenRepository creates a new token repository
func NewRedisTokenRepository(client *redis.Client, logger *slog.Logger) *RedisTokenRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisTokenRepository{
		client: client,
		logger: logger,
	}
}

func tokenKey(tokenID string) string {
	return fmt.Sprintf("token:%s", tokenID)
}

// Save records an issued token for its lifetime
func (r *RedisTokenRepository) Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, tokenKey(tokenID), userID, ttl); err != nil {
		r.logger.Error("failed to save token",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// IsLive reports whether the token ID is still present
func (r *RedisTokenRepository) IsLive(ctx context.Context, tokenID string) (bool, error) {
	live, err := r.client.Exists(ctx, tokenKey(tokenID))
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return live, nil
}

// Revoke removes a token before its natural expiry
func (r *RedisTokenRepository) Revoke(ctx context.Context, tokenID string) error {
	if err := r.client.Delete(ctx, tokenKey(tokenID)); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
