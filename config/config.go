package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Optional: when empty the service runs without a message broker.
	RabbitURL string

	GeminiAPIKey string
	MapsAPIKey   string

	// Base URL used to build shareable room links.
	BaseURL string

	GenerationTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "tripvote"),

		RabbitURL: getEnv("RABBITMQ_URL", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		MapsAPIKey:   getEnv("GOOGLE_MAPS_API_KEY", ""),

		BaseURL: getEnv("BASE_URL", "http://localhost:3000"),

		GenerationTimeout: time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 60)) * time.Second,
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
