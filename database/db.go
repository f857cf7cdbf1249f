package database

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"atelier-backend/models"
)

var (
	DB  *gorm.DB
	log *zap.SugaredLogger
)

// Connect loads .env, opens the shared Postgres connection and keeps the
// given logger for the package.
func Connect(logger *zap.SugaredLogger) error {
	log = logger

	if err := godotenv.Load(); err != nil {
		log.Warnw(".env file not found, relying on environment", "error", err)
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "db"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable",
		host, os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	return nil
}

// AutoMigrate applies the public-schema tables (shop owner accounts).
func AutoMigrate() error {
	return DB.AutoMigrate(&models.User{})
}
