package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/model"
	"rumpi.app/chatbackend/internal/realtime"
	"rumpi.app/chatbackend/internal/repository"
	"rumpi.app/chatbackend/pkg/apperror"
)

// Deliverer pushes a payload to a user's live sessions. Implemented by
// realtime.Engine; faked in tests.
type Deliverer interface {
	Deliver(ctx context.Context, userID uuid.UUID, payload realtime.NotificationPayload) bool
	ActiveSessionCount(userID uuid.UUID) int
}

// DeliveryReport is what producers hand back to their callers: the durable
// row plus whether any live session accepted the push.
type DeliveryReport struct {
	Notification      *model.Notification `json:"notification"`
	Delivered         bool                `json:"delivered"`
	ActiveConnections int                 `json:"active_connections"`
}

type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	ListUnread(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error

	NotifyMessage(ctx context.Context, recipientID uuid.UUID, senderName, content string, conversationID uuid.UUID) (*DeliveryReport, error)
	NotifyFriendRequest(ctx context.Context, recipientID, senderID uuid.UUID, senderName string) (*DeliveryReport, error)
	NotifyGroupInvite(ctx context.Context, recipientID, conversationID uuid.UUID, senderName, groupName string) (*DeliveryReport, error)
	NotifySystem(ctx context.Context, recipientID uuid.UUID, content string, metadata model.Metadata) (*DeliveryReport, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	deliverer Deliverer
}

func NewNotificationService(repo repository.NotificationRepository, deliverer Deliverer) NotificationService {
	return &notificationService{
		repo:      repo,
		deliverer: deliverer,
	}
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	return s.repo.FindByUserID(ctx, userID)
}

func (s *notificationService) ListUnread(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	return s.repo.FindUnreadByUserID(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkAsRead flips is_read for a notification owned by the caller.
// Marking an already-read notification succeeds without touching the row;
// is_read never reverts.
func (s *notificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	notification, err := s.repo.FindOwned(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !notification.IsRead {
		if err := s.repo.MarkAsRead(ctx, id); err != nil {
			return nil, err
		}
		notification.IsRead = true
	}
	return notification, nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	rows, err := s.repo.SoftDelete(ctx, id, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// previewLimit is the longest message excerpt carried in notification
// metadata; longer content is cut to 47 characters plus an ellipsis.
// Counted in runes so multi-byte content is never split mid-character.
const previewLimit = 50

func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) > previewLimit {
		return string(runes[:previewLimit-3]) + "..."
	}
	return content
}

func (s *notificationService) NotifyMessage(ctx context.Context, recipientID uuid.UUID, senderName, content string, conversationID uuid.UUID) (*DeliveryReport, error) {
	preview := previewOf(content)
	return s.createAndSend(ctx, recipientID, model.NotificationTypeMessage,
		fmt.Sprintf("%s: %s", senderName, preview),
		model.Metadata{
			"conversation_id": conversationID.String(),
			"sender_name":     senderName,
			"message_preview": preview,
		})
}

func (s *notificationService) NotifyFriendRequest(ctx context.Context, recipientID, senderID uuid.UUID, senderName string) (*DeliveryReport, error) {
	return s.createAndSend(ctx, recipientID, model.NotificationTypeFriendRequest,
		fmt.Sprintf("%s sent you a friend request", senderName),
		model.Metadata{
			"sender_id":   senderID.String(),
			"sender_name": senderName,
		})
}

func (s *notificationService) NotifyGroupInvite(ctx context.Context, recipientID, conversationID uuid.UUID, senderName, groupName string) (*DeliveryReport, error) {
	return s.createAndSend(ctx, recipientID, model.NotificationTypeGroupInvite,
		fmt.Sprintf("%s added you to %s", senderName, groupName),
		model.Metadata{
			"conversation_id": conversationID.String(),
			"sender_name":     senderName,
			"group_name":      groupName,
		})
}

func (s *notificationService) NotifySystem(ctx context.Context, recipientID uuid.UUID, content string, metadata model.Metadata) (*DeliveryReport, error) {
	return s.createAndSend(ctx, recipientID, model.NotificationTypeSystem, content, metadata)
}

// createAndSend persists the notification first, then attempts best-effort
// live delivery. A delivery miss is not an error: the unread list is the
// durable fallback for clients that were offline.
func (s *notificationService) createAndSend(ctx context.Context, userID uuid.UUID, notificationType, content string, metadata model.Metadata) (*DeliveryReport, error) {
	notification := &model.Notification{
		UserID:   userID,
		Type:     notificationType,
		Content:  content,
		Metadata: metadata,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	payloadMeta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		payloadMeta[k] = v
	}
	payloadMeta["notification_id"] = notification.ID.String()

	delivered := s.deliverer.Deliver(ctx, userID, realtime.NotificationPayload{
		NotificationID: notification.ID.String(),
		Title:          typeTitle(notificationType),
		Body:           content,
		Type:           notificationType,
		Metadata:       payloadMeta,
	})

	return &DeliveryReport{
		Notification:      notification,
		Delivered:         delivered,
		ActiveConnections: s.deliverer.ActiveSessionCount(userID),
	}, nil
}

func typeTitle(notificationType string) string {
	switch notificationType {
	case model.NotificationTypeMessage:
		return "New Message"
	case model.NotificationTypeFriendRequest:
		return "New Friend Request"
	case model.NotificationTypeGroupInvite:
		return "Group Invitation"
	case model.NotificationTypeSystem:
		return "System Notification"
	default:
		return "Notification"
	}
}
