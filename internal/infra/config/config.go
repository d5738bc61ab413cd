package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"
	_ "time/tzdata" // Embedded zone database for hosts without one

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string
	DatabaseURL   string
	LogLevel      string
	Environment   string

	NotifyTimezone  *time.Location
	NotifyStartHour int
	NotifyEndHour   int

	CacheDir                  string
	FootballAPIURL            string
	FootballAPIToken          string
	FootballCompetition       string
	FootballArea              string
	FootballRequestsPerMinute int
	HTTPTimeout               time.Duration
	SendTimeout               time.Duration

	QueueBatchSize     int
	QueueRetentionDays int
	CronSpecQueuePrune string

	AdminAddr       string
	AdminUsername   string
	AdminPassword   string
	AdminTelegramID int64 // Operator chat for in-bot admin commands; 0 disables them
	MetricsAddr     string
}

// Load reads configuration from environment variables and .env file (if present).
// Role-specific requirements are checked by ValidateBot and ValidateAdmin.
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.FootballAPIToken = os.Getenv("FOOTBALL_API_TOKEN")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	cfg.DatabaseURL = getenv("DATABASE_URL", "data/bot.sqlite3")

	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getenv("ENVIRONMENT", "development"))

	tzName := getenv("NOTIFY_TIMEZONE", "Europe/Rome")
	cfg.NotifyTimezone, err = time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_TIMEZONE %q: %w", tzName, err)
	}

	if cfg.NotifyStartHour, err = getInt("NOTIFY_START_HOUR", 7); err != nil {
		return nil, err
	}
	if cfg.NotifyEndHour, err = getInt("NOTIFY_END_HOUR", 10); err != nil {
		return nil, err
	}
	if cfg.NotifyStartHour < 0 || cfg.NotifyEndHour > 24 || cfg.NotifyStartHour >= cfg.NotifyEndHour {
		return nil, fmt.Errorf("invalid notification window [%d, %d)", cfg.NotifyStartHour, cfg.NotifyEndHour)
	}

	cfg.CacheDir = getenv("CACHE_DIR", "data/cache")
	cfg.FootballAPIURL = strings.TrimRight(getenv("FOOTBALL_API_URL", "https://api.football-data.org/v4"), "/")
	cfg.FootballCompetition = getenv("FOOTBALL_COMPETITION", "SA")
	cfg.FootballArea = getenv("FOOTBALL_AREA", "2114")
	if cfg.FootballRequestsPerMinute, err = getInt("FOOTBALL_REQUESTS_PER_MINUTE", 10); err != nil {
		return nil, err
	}

	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.SendTimeout, err = getDuration("SEND_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	if cfg.QueueBatchSize, err = getInt("QUEUE_BATCH_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.QueueBatchSize <= 0 {
		return nil, fmt.Errorf("QUEUE_BATCH_SIZE must be positive, got %d", cfg.QueueBatchSize)
	}
	if cfg.QueueRetentionDays, err = getInt("QUEUE_RETENTION_DAYS", 30); err != nil {
		return nil, err
	}
	cfg.CronSpecQueuePrune = getenv("CRON_SPEC_QUEUE_PRUNE", "0 4 * * *") // Default: 04:00 daily

	cfg.AdminAddr = getenv("ADMIN_ADDR", ":5000")
	cfg.AdminUsername = getenv("ADMIN_USERNAME", "admin")
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	if v := strings.TrimSpace(os.Getenv("ADMIN_TELEGRAM_ID")); v != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return cfg, nil
}

// ValidateBot checks the settings the transport-owning process cannot run without.
func (c *AppConfig) ValidateBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	if c.FootballAPIToken == "" {
		return fmt.Errorf("FOOTBALL_API_TOKEN is not set")
	}
	return nil
}

// ValidateAdmin checks the settings of the admin API process.
func (c *AppConfig) ValidateAdmin() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is not set")
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
