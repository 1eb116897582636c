package config

import (
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}
	for _, key := range []string{
		"ENV", "DATABASE_DRIVER", "DATABASE_PATH", "DATABASE_URL", "HTTP_ADDR", "JWT_SECRET", "JWT_ISSUER",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_URL", "TELEGRAM_ALLOWED_USER_IDS", "ADMIN_TELEGRAM_ID",
		"MENU_LAYOUT", "MENU_LAYOUTS_FILE", "CALORIES_PER_MEAL_MIN", "CALORIES_PER_MEAL_MAX", "MENU_LOCALE",
	} {
		setEnv(key, "")
	}

	t.Run("Defaults", func(t *testing.T) {
		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabaseDriver != DriverSQLite {
			t.Errorf("Expected sqlite driver, got '%s'", cfg.DatabaseDriver)
		}
		if cfg.CaloriesPerMealMin != 500 || cfg.CaloriesPerMealMax != 700 {
			t.Errorf("Expected 500-700 calorie window, got %d-%d", cfg.CaloriesPerMealMin, cfg.CaloriesPerMealMax)
		}
		if cfg.MenuLayout != "courses" || cfg.MenuLocale != "en" {
			t.Errorf("Unexpected menu defaults: layout=%s locale=%s", cfg.MenuLayout, cfg.MenuLocale)
		}
		if err := cfg.RequireServer(); err == nil || err.Error() != "JWT_SECRET environment variable not set" {
			t.Errorf("Expected missing JWT_SECRET error, got %v", err)
		}
	})

	t.Run("Success", func(t *testing.T) {
		setEnv("DATABASE_DRIVER", "Postgres")
		setEnv("DATABASE_URL", "postgres://planner@localhost/planner")
		setEnv("JWT_SECRET", "secret")
		setEnv("CALORIES_PER_MEAL_MIN", "400")
		setEnv("CALORIES_PER_MEAL_MAX", "650")
		setEnv("TELEGRAM_ALLOWED_USER_IDS", "11, 22")
		setEnv("ADMIN_TELEGRAM_ID", "99")
		setEnv("MENU_LOCALE", "TR")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabaseDriver != DriverPostgres {
			t.Errorf("Expected postgres driver, got '%s'", cfg.DatabaseDriver)
		}
		if cfg.CaloriesPerMealMin != 400 || cfg.CaloriesPerMealMax != 650 {
			t.Errorf("Unexpected calorie window %d-%d", cfg.CaloriesPerMealMin, cfg.CaloriesPerMealMax)
		}
		if cfg.MenuLocale != "tr" {
			t.Errorf("Expected locale 'tr', got '%s'", cfg.MenuLocale)
		}
		if err := cfg.RequireServer(); err != nil {
			t.Errorf("Expected server config to be complete, got %v", err)
		}
		if !cfg.TelegramAllowed(22) || !cfg.TelegramAllowed(99) || cfg.TelegramAllowed(33) {
			t.Errorf("Unexpected allow list behaviour for %v", cfg.TelegramAllowedUserIDs)
		}
	})

	t.Run("MissingDatabaseURL", func(t *testing.T) {
		setEnv("DATABASE_DRIVER", "postgres")
		setEnv("DATABASE_URL", "")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing DATABASE_URL, got nil")
		}
		expectedError := "DATABASE_URL environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	invalid := []struct {
		name, key, value string
	}{
		{"UnknownDriver", "DATABASE_DRIVER", "mysql"},
		{"UnknownLocale", "MENU_LOCALE", "de"},
		{"BadCalories", "CALORIES_PER_MEAL_MIN", "lots"},
		{"InvertedWindow", "CALORIES_PER_MEAL_MIN", "900"},
		{"BadAllowList", "TELEGRAM_ALLOWED_USER_IDS", "11,abc"},
		{"BadAdmin", "ADMIN_TELEGRAM_ID", "root"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(tt.key, tt.value)
			if _, err := NewFromEnv(); err == nil {
				t.Errorf("Expected an error for %s=%s, got nil", tt.key, tt.value)
			}
		})
	}
}
