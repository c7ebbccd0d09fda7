package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/model"
	"rumpi.app/chatbackend/internal/repository"
	"rumpi.app/chatbackend/pkg/apperror"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	SetStatus(ctx context.Context, userID uuid.UUID, status string) error
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetStatus persists presence transitions coming from the realtime tracker.
func (s *userService) SetStatus(ctx context.Context, userID uuid.UUID, status string) error {
	if status != model.UserStatusOnline && status != model.UserStatusOffline {
		return apperror.ErrInvalidInput
	}
	return s.userRepo.UpdateStatus(ctx, userID, status)
}
