package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/model"
	"rumpi.app/chatbackend/internal/repository"
	"rumpi.app/chatbackend/pkg/apperror"
)

type FriendList struct {
	Data []model.Friendship `json:"data"`
	Meta struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalPages int64 `json:"total_pages"`
	} `json:"meta"`
}

type FriendshipService interface {
	SendRequest(ctx context.Context, userID, friendID uuid.UUID) (*model.Friendship, error)
	AcceptRequest(ctx context.Context, userID, senderID uuid.UUID) (*model.Friendship, error)
	BlockUser(ctx context.Context, userID, friendID uuid.UUID) (*model.Friendship, error)
	SearchFriends(ctx context.Context, userID uuid.UUID, search string, page, limit int) (*FriendList, error)
}

type friendshipService struct {
	friendshipRepo repository.FriendshipRepository
	userRepo       repository.UserRepository
	notifications  NotificationService
	redisClient    *redis.Client
	requestWindow  time.Duration
}

func NewFriendshipService(
	friendshipRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	notifications NotificationService,
	redisClient *redis.Client,
	requestWindow time.Duration,
) FriendshipService {
	return &friendshipService{
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		notifications:  notifications,
		redisClient:    redisClient,
		requestWindow:  requestWindow,
	}
}

func (s *friendshipService) SendRequest(ctx context.Context, userID, friendID uuid.UUID) (*model.Friendship, error) {
	if userID == friendID {
		return nil, fmt.Errorf("cannot send friend request to yourself: %w", apperror.ErrBadRequest)
	}

	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, userID, "friend_request", s.requestWindow)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, RateLimitError(ctx, s.redisClient, userID, "friend_request")
	}

	if _, err := s.userRepo.FindByID(ctx, friendID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	existing, err := s.friendshipRepo.FindBetween(ctx, userID, friendID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("friendship already exists: %w", apperror.ErrBadRequest)
	}

	blocked, err := s.friendshipRepo.IsBlockedBy(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("cannot send friend request to a user who has blocked you: %w", apperror.ErrBadRequest)
	}

	friendship := &model.Friendship{
		UserID:   userID,
		FriendID: friendID,
		Status:   model.FriendshipPending,
	}
	if err := s.friendshipRepo.Create(ctx, friendship); err != nil {
		return nil, err
	}

	// Best-effort notification: a delivery miss never fails the request.
	sender, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		log.Printf("friend request notification skipped, sender lookup failed: %v", err)
		return friendship, nil
	}
	if _, err := s.notifications.NotifyFriendRequest(ctx, friendID, userID, sender.Username); err != nil {
		log.Printf("friend request notification failed: %v", err)
	}

	return friendship, nil
}

func (s *friendshipService) AcceptRequest(ctx context.Context, userID, senderID uuid.UUID) (*model.Friendship, error) {
	friendship, err := s.friendshipRepo.FindPendingFor(ctx, userID, senderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	friendship.Status = model.FriendshipAccepted
	if err := s.friendshipRepo.Save(ctx, friendship); err != nil {
		return nil, err
	}

	// Mirror row so both sides see the friendship in their friend list.
	mirror := &model.Friendship{
		UserID:   friendship.FriendID,
		FriendID: friendship.UserID,
		Status:   model.FriendshipAccepted,
	}
	if err := s.friendshipRepo.Create(ctx, mirror); err != nil {
		return nil, err
	}

	return friendship, nil
}

func (s *friendshipService) BlockUser(ctx context.Context, userID, friendID uuid.UUID) (*model.Friendship, error) {
	if userID == friendID {
		return nil, fmt.Errorf("cannot block yourself: %w", apperror.ErrBadRequest)
	}

	// Drop the other side's row so the blocked user no longer lists the
	// blocker as a friend.
	if err := s.friendshipRepo.DeleteDirected(ctx, friendID, userID); err != nil {
		return nil, err
	}

	friendship, err := s.friendshipRepo.FindDirected(ctx, userID, friendID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if friendship == nil {
		friendship = &model.Friendship{
			UserID:   userID,
			FriendID: friendID,
			Status:   model.FriendshipBlocked,
		}
		if err := s.friendshipRepo.Create(ctx, friendship); err != nil {
			return nil, err
		}
		return friendship, nil
	}

	friendship.Status = model.FriendshipBlocked
	if err := s.friendshipRepo.Save(ctx, friendship); err != nil {
		return nil, err
	}
	return friendship, nil
}

func (s *friendshipService) SearchFriends(ctx context.Context, userID uuid.UUID, search string, page, limit int) (*FriendList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	friendships, total, err := s.friendshipRepo.SearchAccepted(ctx, userID, search, limit, offset)
	if err != nil {
		return nil, err
	}

	list := &FriendList{Data: friendships}
	list.Meta.Total = total
	list.Meta.Page = page
	list.Meta.Limit = limit
	list.Meta.TotalPages = (total + int64(limit) - 1) / int64(limit)
	return list, nil
}
