package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Config selects the database driver and where to connect
type Config struct {
	Driver string // "sqlite3" or "postgres"
	DSN    string // file path for sqlite3, connection URL for postgres
}

// Connect establishes a connection to the database and creates the schema
func Connect(cfg Config) error {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}

	switch driver {
	case "sqlite3":
		// Create data directory if it doesn't exist
		if cfg.DSN != ":memory:" {
			if dir := filepath.Dir(cfg.DSN); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create data directory: %w", err)
				}
			}
		}
	case "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	DB = db

	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		err := DB.Close()
		DB = nil
		return err
	}
	return nil
}

// idColumn returns the auto-increment primary key definition for the driver
func idColumn() string {
	if DB.DriverName() == "postgres" {
		return "id BIGSERIAL PRIMARY KEY"
	}
	return "id INTEGER PRIMARY KEY AUTOINCREMENT"
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	// Best score per session owner
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS best_scores (
			owner TEXT PRIMARY KEY,
			score INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create best_scores table: %w", err)
	}

	// Question bank, kept in load order
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			` + idColumn() + `,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_option INTEGER NOT NULL,
			points INTEGER NOT NULL,
			difficulty TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create questions table: %w", err)
	}

	// Finished quiz runs
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS quiz_results (
			` + idColumn() + `,
			owner TEXT NOT NULL,
			score INTEGER NOT NULL,
			max_score INTEGER NOT NULL,
			correct_answers INTEGER NOT NULL,
			total_questions INTEGER NOT NULL,
			difficulty TEXT NOT NULL,
			duration INTEGER NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create quiz_results table: %w", err)
	}

	_, err = DB.Exec(`CREATE INDEX IF NOT EXISTS idx_quiz_results_owner ON quiz_results (owner)`)
	if err != nil {
		return fmt.Errorf("failed to create quiz_results index: %w", err)
	}

	return nil
}
