package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"rumpi.app/chatbackend/pkg/apperror"
)

func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string, limit time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil
	}

	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)

	wasSet, err := rdb.SetNX(ctx, key, "locked", limit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func GetRateLimitTTL(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
	return rdb.TTL(ctx, key).Result()
}

// RateLimitError wraps ErrRateLimitExceeded with the remaining lock TTL so
// handlers can tell clients how long to wait.
func RateLimitError(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string) error {
	ttl, err := GetRateLimitTTL(ctx, rdb, userID, action)
	if err != nil || ttl <= 0 {
		return apperror.ErrRateLimitExceeded
	}
	return fmt.Errorf("try again in %s: %w", ttl.Round(time.Second), apperror.ErrRateLimitExceeded)
}
