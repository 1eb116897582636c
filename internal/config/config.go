package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the application.
type Config struct {
	Env string

	// Storage
	DatabaseDriver string
	DatabasePath   string
	DatabaseURL    string

	// HTTP API
	HTTPAddr  string
	JWTSecret string
	JWTIssuer string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	// Menu generation
	MenuLayout         string
	MenuLayoutsFile    string
	CaloriesPerMealMin int
	CaloriesPerMealMax int
	MenuLocale         string
}

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		Env:                getenv("ENV", "development"),
		DatabaseDriver:     strings.ToLower(getenv("DATABASE_DRIVER", DriverSQLite)),
		DatabasePath:       getenv("DATABASE_PATH", "data/db/planner.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          getenv("JWT_ISSUER", "balanced-meal-planner"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		MenuLayout:         getenv("MENU_LAYOUT", "courses"),
		MenuLayoutsFile:    os.Getenv("MENU_LAYOUTS_FILE"),
		MenuLocale:         strings.ToLower(getenv("MENU_LOCALE", "en")),
	}

	switch cfg.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	if cfg.MenuLocale != "en" && cfg.MenuLocale != "tr" {
		return nil, fmt.Errorf("unsupported MENU_LOCALE %q", cfg.MenuLocale)
	}

	var err error
	if cfg.CaloriesPerMealMin, err = getInt("CALORIES_PER_MEAL_MIN", 500); err != nil {
		return nil, err
	}
	if cfg.CaloriesPerMealMax, err = getInt("CALORIES_PER_MEAL_MAX", 700); err != nil {
		return nil, err
	}
	if cfg.CaloriesPerMealMin < 0 || cfg.CaloriesPerMealMin > cfg.CaloriesPerMealMax {
		return nil, fmt.Errorf("invalid calorie window %d-%d", cfg.CaloriesPerMealMin, cfg.CaloriesPerMealMax)
	}

	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		if cfg.AdminTelegramID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	for _, part := range strings.Split(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
		}
		cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
	}

	return cfg, nil
}

// RequireServer checks the settings only the HTTP server needs.
func (c *Config) RequireServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}

// TelegramAllowed reports whether a Telegram user may talk to the bot.
// An empty allow list admits everyone.
func (c *Config) TelegramAllowed(userID int64) bool {
	if len(c.TelegramAllowedUserIDs) == 0 || userID == c.AdminTelegramID {
		return true
	}
	for _, id := range c.TelegramAllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
