package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/quizbot/internal/database"
	"github.com/joho/godotenv"
)

// ErrMissingToken is returned when TELEGRAM_BOT_TOKEN is not set
var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")

// Config holds the application settings
type Config struct {
	TelegramToken string
	Database      database.Config

	// QuestionsSource is a JSON file, a spreadsheet, an http(s) URL or "db"
	QuestionsSource string
	// QuestionsImport is an optional spreadsheet copied into the database on startup
	QuestionsImport string

	LogMode             string
	SessionTTL          time.Duration
	MaintenanceInterval time.Duration
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if token == "" {
		return nil, ErrMissingToken
	}

	driver := getenv("DATABASE_DRIVER", "sqlite3")
	if driver != "sqlite3" && driver != "postgres" {
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", driver)
	}

	return &Config{
		TelegramToken: token,
		Database: database.Config{
			Driver: driver,
			DSN:    getenv("DATABASE_DSN", "data/quizbot.db"),
		},
		QuestionsSource:     getenv("QUESTIONS_SOURCE", "data/questions.json"),
		QuestionsImport:     os.Getenv("QUESTIONS_IMPORT"),
		LogMode:             getenv("LOG_MODE", "dev"),
		SessionTTL:          getMinutes("SESSION_TTL_MINUTES", 120),
		MaintenanceInterval: getMinutes("MAINTENANCE_INTERVAL_MINUTES", 10),
	}, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// getMinutes falls back to the default on missing, malformed or non-positive values
func getMinutes(key string, fallback int) time.Duration {
	n := fallback
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			n = parsed
		}
	}
	return time.Duration(n) * time.Minute
}
