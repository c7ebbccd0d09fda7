package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/model"
	"rumpi.app/chatbackend/internal/realtime"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	db, err := gorm.Open(dsn, &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Friendship{},
		&model.Conversation{},
		&model.Message{},
		&model.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Status:       model.UserStatusOffline,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// fakeDeliverer records pushes instead of touching live sessions.
type fakeDeliverer struct {
	delivered bool
	sessions  int
	pushes    map[uuid.UUID][]realtime.NotificationPayload
}

func newFakeDeliverer(delivered bool, sessions int) *fakeDeliverer {
	return &fakeDeliverer{
		delivered: delivered,
		sessions:  sessions,
		pushes:    make(map[uuid.UUID][]realtime.NotificationPayload),
	}
}

func (f *fakeDeliverer) Deliver(ctx context.Context, userID uuid.UUID, payload realtime.NotificationPayload) bool {
	f.pushes[userID] = append(f.pushes[userID], payload)
	return f.delivered
}

func (f *fakeDeliverer) ActiveSessionCount(userID uuid.UUID) int {
	return f.sessions
}
