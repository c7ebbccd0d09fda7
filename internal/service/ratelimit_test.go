package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"rumpi.app/chatbackend/pkg/apperror"
)

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	ctx := context.Background()

	allowed, err := CheckAndSetRateLimit(ctx, nil, uuid.New(), "send_message", 0)
	if err != nil || !allowed {
		t.Fatalf("CheckAndSetRateLimit without redis = (%v, %v), want allowed", allowed, err)
	}
}

func TestRateLimitErrorKeepsSentinel(t *testing.T) {
	err := RateLimitError(context.Background(), nil, uuid.New(), "friend_request")
	if !errors.Is(err, apperror.ErrRateLimitExceeded) {
		t.Fatalf("RateLimitError = %v, want ErrRateLimitExceeded", err)
	}
}
