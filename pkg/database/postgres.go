package database

import (
	"log"

	"github.com/chayanin/tripvote-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Room{}, &models.User{}, &models.Vote{}); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Unique index on the lowercased name: names collide case-insensitively
	// within a room
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_room_name
		ON users (room_id, LOWER(name))
	`)

	return db
}
