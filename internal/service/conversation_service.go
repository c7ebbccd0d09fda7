package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/model"
	"rumpi.app/chatbackend/internal/repository"
	"rumpi.app/chatbackend/pkg/apperror"
)

type CreateConversationInput struct {
	ParticipantIDs []uuid.UUID `json:"participant_ids" binding:"required,min=1"`
	Name           *string     `json:"name"`
	IsGroup        bool        `json:"is_group"`
}

type ConversationService interface {
	Create(ctx context.Context, currentUserID uuid.UUID, input CreateConversationInput) (*model.Conversation, error)
	FindAll(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	FindOne(ctx context.Context, conversationID, userID uuid.UUID) (*model.Conversation, error)
	AddParticipants(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID, currentUserID uuid.UUID) (*model.Conversation, error)
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	notifications    NotificationService
}

func NewConversationService(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	notifications NotificationService,
) ConversationService {
	return &conversationService{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		notifications:    notifications,
	}
}

func (s *conversationService) Create(ctx context.Context, currentUserID uuid.UUID, input CreateConversationInput) (*model.Conversation, error) {
	participantIDs := input.ParticipantIDs
	included := false
	for _, id := range participantIDs {
		if id == currentUserID {
			included = true
			break
		}
	}
	if !included {
		participantIDs = append(participantIDs, currentUserID)
	}

	participants, err := s.userRepo.FindByIDs(ctx, participantIDs)
	if err != nil {
		return nil, err
	}
	if len(participants) != len(participantIDs) {
		return nil, fmt.Errorf("one or more participants not found: %w", apperror.ErrBadRequest)
	}

	if !input.IsGroup {
		if len(participants) != 2 {
			return nil, fmt.Errorf("non-group conversations must have exactly 2 participants: %w", apperror.ErrBadRequest)
		}

		// Reuse the existing direct conversation instead of duplicating it.
		existing, err := s.conversationRepo.FindDirectBetween(ctx, participantIDs[0], participantIDs[1])
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	conversation := &model.Conversation{
		Name:         input.Name,
		IsGroup:      input.IsGroup,
		Participants: participants,
	}
	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *conversationService) FindAll(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	return s.conversationRepo.FindByUserID(ctx, userID)
}

// FindOne hides conversations the caller does not belong to behind NotFound.
func (s *conversationService) FindOne(ctx context.Context, conversationID, userID uuid.UUID) (*model.Conversation, error) {
	conversation, err := s.conversationRepo.FindByID(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, apperror.ErrNotFound
	}
	return conversation, nil
}

func (s *conversationService) AddParticipants(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID, currentUserID uuid.UUID) (*model.Conversation, error) {
	conversation, err := s.FindOne(ctx, conversationID, currentUserID)
	if err != nil {
		return nil, err
	}
	if !conversation.IsGroup {
		return nil, fmt.Errorf("cannot add participants to non-group conversation: %w", apperror.ErrBadRequest)
	}

	users, err := s.userRepo.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(userIDs) {
		return nil, fmt.Errorf("one or more users not found: %w", apperror.ErrBadRequest)
	}

	var added []model.User
	for _, u := range users {
		if !conversation.HasParticipant(u.ID) {
			added = append(added, u)
		}
	}
	if len(added) == 0 {
		return conversation, nil
	}

	if err := s.conversationRepo.AddParticipants(ctx, conversation, added); err != nil {
		return nil, err
	}
	conversation.Participants = append(conversation.Participants, added...)

	inviter, err := s.userRepo.FindByID(ctx, currentUserID)
	if err != nil {
		log.Printf("group invite notifications skipped, inviter lookup failed: %v", err)
		return conversation, nil
	}

	groupName := "Group chat"
	if conversation.Name != nil && *conversation.Name != "" {
		groupName = *conversation.Name
	}
	for _, u := range added {
		if _, err := s.notifications.NotifyGroupInvite(ctx, u.ID, conversation.ID, inviter.Username, groupName); err != nil {
			log.Printf("group invite notification to %s failed: %v", u.ID, err)
		}
	}

	return conversation, nil
}
