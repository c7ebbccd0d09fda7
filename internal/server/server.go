package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/config"
	"rumpi.app/chatbackend/internal/handler"
	"rumpi.app/chatbackend/internal/middleware"
	"rumpi.app/chatbackend/internal/realtime"
	"rumpi.app/chatbackend/internal/repository"
	"rumpi.app/chatbackend/internal/service"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Realtime core: one registry per instance, presence derived from it,
	// deliveries pushed through it.
	registry := realtime.NewRegistry()
	tracker := realtime.NewTracker(registry)
	engine := realtime.NewEngine(registry, cfg.DeliveryAckTimeout)

	userSvc := service.NewUserService(userRepo)
	tracker.OnStatusChange(func(ctx context.Context, userID uuid.UUID, status string) {
		if err := userSvc.SetStatus(ctx, userID, status); err != nil {
			log.Printf("failed to persist status %s for user %s: %v", status, userID, err)
		}
	})

	notificationSvc := service.NewNotificationService(notificationRepo, engine)
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	friendshipSvc := service.NewFriendshipService(friendshipRepo, userRepo, notificationSvc, redisClient, cfg.RateLimitFriendRequest)
	conversationSvc := service.NewConversationService(conversationRepo, userRepo, notificationSvc)
	messageSvc := service.NewMessageService(messageRepo, conversationRepo, userRepo, notificationSvc, redisClient, cfg.RateLimitMessage)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	friendshipHandler := handler.NewFriendshipHandler(friendshipSvc)
	conversationHandler := handler.NewConversationHandler(conversationSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, tracker)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/auth/logout", authHandler.Logout)

		// User routes
		protected.GET("/users/me", userHandler.GetCurrentProfile)

		// Friendship routes
		protected.POST("/friends", friendshipHandler.SendRequest)
		protected.GET("/friends", friendshipHandler.Search)
		protected.PUT("/friends/:id/accept", friendshipHandler.AcceptRequest)
		protected.PUT("/friends/:id/block", friendshipHandler.Block)

		// Conversation routes
		protected.POST("/conversations", conversationHandler.Create)
		protected.GET("/conversations", conversationHandler.GetAll)
		protected.GET("/conversations/:id", conversationHandler.GetByID)
		protected.POST("/conversations/:id/participants", conversationHandler.AddParticipants)
		protected.POST("/conversations/:id/messages", messageHandler.Create)
		protected.GET("/conversations/:id/messages", messageHandler.GetByConversation)

		// Message routes
		protected.PUT("/messages/:id/status", messageHandler.UpdateStatus)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread", notificationHandler.GetUnread)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", notificationHandler.Delete)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
