package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/model"
)

type FriendshipRepository interface {
	Create(ctx context.Context, friendship *model.Friendship) error
	Save(ctx context.Context, friendship *model.Friendship) error
	FindBetween(ctx context.Context, userID, friendID uuid.UUID) (*model.Friendship, error)
	FindDirected(ctx context.Context, userID, friendID uuid.UUID) (*model.Friendship, error)
	DeleteDirected(ctx context.Context, userID, friendID uuid.UUID) error
	FindPendingFor(ctx context.Context, recipientID, senderID uuid.UUID) (*model.Friendship, error)
	IsBlockedBy(ctx context.Context, userID, byUserID uuid.UUID) (bool, error)
	SearchAccepted(ctx context.Context, userID uuid.UUID, search string, limit, offset int) ([]model.Friendship, int64, error)
}

type friendshipRepository struct {
	db *gorm.DB
}

func NewFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &friendshipRepository{db: db}
}

func (r *friendshipRepository) Create(ctx context.Context, friendship *model.Friendship) error {
	return r.db.WithContext(ctx).Create(friendship).Error
}

func (r *friendshipRepository) Save(ctx context.Context, friendship *model.Friendship) error {
	return r.db.WithContext(ctx).Save(friendship).Error
}

// FindBetween returns the friendship row linking the two users in either
// direction.
func (r *friendshipRepository) FindBetween(ctx context.Context, userID, friendID uuid.UUID) (*model.Friendship, error) {
	var friendship model.Friendship
	if err := r.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).
		First(&friendship).Error; err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *friendshipRepository) FindDirected(ctx context.Context, userID, friendID uuid.UUID) (*model.Friendship, error) {
	var friendship model.Friendship
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		First(&friendship).Error; err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *friendshipRepository) DeleteDirected(ctx context.Context, userID, friendID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Delete(&model.Friendship{}).Error
}

func (r *friendshipRepository) FindPendingFor(ctx context.Context, recipientID, senderID uuid.UUID) (*model.Friendship, error) {
	var friendship model.Friendship
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ? AND status = ?", senderID, recipientID, model.FriendshipPending).
		First(&friendship).Error; err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *friendshipRepository) IsBlockedBy(ctx context.Context, userID, byUserID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Friendship{}).
		Where("user_id = ? AND friend_id = ? AND status = ?", byUserID, userID, model.FriendshipBlocked).
		Count(&count).Error
	return count > 0, err
}

func (r *friendshipRepository) SearchAccepted(ctx context.Context, userID uuid.UUID, search string, limit, offset int) ([]model.Friendship, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Friendship{}).
		Joins("JOIN users ON users.id = friendships.friend_id").
		Where("friendships.user_id = ? AND friendships.status = ?", userID, model.FriendshipAccepted)

	if search != "" {
		query = query.Where("users.username LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var friendships []model.Friendship
	err := query.
		Preload("Friend").
		Limit(limit).
		Offset(offset).
		Find(&friendships).Error
	return friendships, total, err
}
