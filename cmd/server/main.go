package main

import (
	"log"

	"clickbag.eco/backend/internal/config"
	"clickbag.eco/backend/internal/model"
	"clickbag.eco/backend/internal/server"
	"clickbag.eco/backend/pkg/database"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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
	if err := seedCommunityStats(db); err != nil {
		log.Fatalf("failed to seed community stats: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
	} else {
		log.Println("REDIS_URL not set, submission rate limiting disabled")
	}

	srv := server.NewServer(cfg, db, redisClient)
	defer srv.Shutdown()

	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Submission{},
		&model.CommunityStats{},
	)
}

// seedCommunityStats makes sure the singleton counter row exists so read
// paths never observe a missing document.
func seedCommunityStats(db *gorm.DB) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CommunityStats{ID: model.CommunityStatsID}).Error
}
