package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/model"
	"rumpi.app/chatbackend/internal/repository"
	"rumpi.app/chatbackend/pkg/apperror"
)

type MessageService interface {
	Create(ctx context.Context, senderID, conversationID uuid.UUID, content string) (*model.Message, error)
	FindByConversation(ctx context.Context, conversationID, userID uuid.UUID) ([]model.Message, error)
	UpdateStatus(ctx context.Context, messageID, userID uuid.UUID, status string) (*model.Message, error)
}

type messageService struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	notifications    NotificationService
	sanitizer        *bluemonday.Policy
	redisClient      *redis.Client
	sendWindow       time.Duration
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	notifications NotificationService,
	redisClient *redis.Client,
	sendWindow time.Duration,
) MessageService {
	return &messageService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		notifications:    notifications,
		sanitizer:        bluemonday.StrictPolicy(),
		redisClient:      redisClient,
		sendWindow:       sendWindow,
	}
}

func (s *messageService) Create(ctx context.Context, senderID, conversationID uuid.UUID, content string) (*model.Message, error) {
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, fmt.Errorf("message content is empty: %w", apperror.ErrInvalidInput)
	}

	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, senderID, "send_message", s.sendWindow)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, RateLimitError(ctx, s.redisClient, senderID, "send_message")
	}

	sender, err := s.userRepo.FindByID(ctx, senderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	conversation, err := s.conversationRepo.FindByID(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(senderID) {
		return nil, fmt.Errorf("user is not a participant in this conversation: %w", apperror.ErrBadRequest)
	}

	message := &model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Status:         model.MessageStatusSent,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	// Notify every other participant. Delivery is best-effort and a miss or
	// even a store failure here never rolls the message back.
	for _, participant := range conversation.Participants {
		if participant.ID == senderID {
			continue
		}
		if _, err := s.notifications.NotifyMessage(ctx, participant.ID, sender.Username, content, conversationID); err != nil {
			log.Printf("message notification to %s failed: %v", participant.ID, err)
		}
	}

	return message, nil
}

func (s *messageService) FindByConversation(ctx context.Context, conversationID, userID uuid.UUID) ([]model.Message, error) {
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

	return s.messageRepo.FindByConversation(ctx, conversationID)
}

func (s *messageService) UpdateStatus(ctx context.Context, messageID, userID uuid.UUID, status string) (*model.Message, error) {
	if status != model.MessageStatusSent &&
		status != model.MessageStatusDelivered &&
		status != model.MessageStatusRead {
		return nil, fmt.Errorf("invalid message status %q: %w", status, apperror.ErrInvalidInput)
	}

	message, err := s.messageRepo.FindByID(ctx, messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if message.Conversation == nil || !message.Conversation.HasParticipant(userID) {
		return nil, apperror.ErrNotFound
	}

	if err := s.messageRepo.UpdateStatus(ctx, messageID, status); err != nil {
		return nil, err
	}
	message.Status = status
	return message, nil
}
