package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/middleware"
	"rumpi.app/chatbackend/internal/model"
	"rumpi.app/chatbackend/internal/realtime"
	"rumpi.app/chatbackend/internal/repository"
	"rumpi.app/chatbackend/internal/service"
)

const testSecret = "test-secret"

func newWSServer(t *testing.T) (*httptest.Server, *realtime.Registry) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	registry := realtime.NewRegistry()
	tracker := realtime.NewTracker(registry)
	engine := realtime.NewEngine(registry, 100*time.Millisecond)
	svc := service.NewNotificationService(repository.NewNotificationRepository(db), engine)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := middleware.NewAuthMiddleware(testSecret)
	router.GET("/api/notifications/ws", auth.RequireAuth(), NewNotificationHandler(svc, tracker).HandleWebSocket)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, registry
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notifications/ws?token=" + token
}

func signToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	srv, registry := newWSServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "not-a-token"), nil)
	if err == nil {
		conn.Close()
		t.Fatalf("dial succeeded with a bad token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %+v, want 401", resp)
	}
	if sessions := registry.All(); len(sessions) != 0 {
		t.Fatalf("rejected connection left %d sessions registered", len(sessions))
	}
}

func TestWebSocketHandshake(t *testing.T) {
	srv, registry := newWSServer(t)
	userID := uuid.New()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, signToken(t, userID)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var ev struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read handshake: %v", err)
	}
	if ev.Event != realtime.EventConnected || ev.Data["status"] != "connected" {
		t.Fatalf("handshake event = %+v", ev)
	}
	if got := registry.ActiveSessionCount(userID); got != 1 {
		t.Fatalf("registered sessions = %d, want 1", got)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for registry.IsOnline(userID) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if registry.IsOnline(userID) {
		t.Fatalf("user still online after the socket closed")
	}
}
