package main

import (
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"rumpi.app/chatbackend/internal/config"
	"rumpi.app/chatbackend/internal/model"
	"rumpi.app/chatbackend/internal/server"
	"rumpi.app/chatbackend/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	redisClient := connectRedis(cfg.RedisURL)

	srv := server.NewServer(cfg, db, redisClient)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Friendship{},
		&model.Conversation{},
		&model.Message{},
		&model.Notification{},
	)
}

// connectRedis is optional: without REDIS_URL the rate limiter is disabled
// and everything else keeps working.
func connectRedis(url string) *redis.Client {
	if url == "" {
		log.Println("REDIS_URL not set, rate limiting disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("invalid REDIS_URL, rate limiting disabled: %v", err)
		return nil
	}

	return redis.NewClient(opts)
}
