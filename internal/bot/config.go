package bot

import (
	"time"
)

// Config represents the configuration for the bot
type Config struct {
	// Telegram bot API token
	Token string
	// Sessions without activity for this long are closed
	SessionTTL time.Duration
	// How often idle sessions are looked for
	MaintenanceInterval time.Duration
	// Number of past runs listed by /stats
	RecentResults int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() Config {
	return Config{
		SessionTTL:          2 * time.Hour,
		MaintenanceInterval: 10 * time.Minute,
		RecentResults:       5,
	}
}
