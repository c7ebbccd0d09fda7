package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/model"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *model.Conversation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	FindDirectBetween(ctx context.Context, userID, otherID uuid.UUID) (*model.Conversation, error)
	AddParticipants(ctx context.Context, conversation *model.Conversation, users []model.User) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conversation *model.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

func (r *conversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&conversation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = conversations.id").
		Where("cm.user_id = ?", userID).
		Preload("Participants").
		Find(&conversations).Error
	return conversations, err
}

// FindDirectBetween returns the existing non-group conversation holding
// exactly the two users, if any.
func (r *conversationRepository) FindDirectBetween(ctx context.Context, userID, otherID uuid.UUID) (*model.Conversation, error) {
	sub := r.db.Table("conversation_members").
		Select("conversation_id").
		Where("user_id IN ?", []uuid.UUID{userID, otherID}).
		Group("conversation_id").
		Having("COUNT(DISTINCT user_id) = 2")

	var conversation model.Conversation
	if err := r.db.WithContext(ctx).
		Where("is_group = ?", false).
		Where("id IN (?)", sub).
		Preload("Participants").
		First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) AddParticipants(ctx context.Context, conversation *model.Conversation, users []model.User) error {
	return r.db.WithContext(ctx).
		Model(conversation).
		Association("Participants").
		Append(users)
}
