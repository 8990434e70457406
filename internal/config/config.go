package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

type Config struct {
	TelegramToken string

	StorageBackend string
	SQLiteDBPath   string
	SupabaseURL    string
	SupabaseKey    string

	// Если заданы, бот принимает апдейты по webhook вместо long polling.
	WebhookURL        string
	WebhookListenAddr string

	LogLevel slog.Level
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	// Отсутствие .env не ошибка: в проде конфиг приходит из окружения.
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		StorageBackend: getEnv("STORAGE_BACKEND", BackendSQLite),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/kopilka.db"),
		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_KEY"),

		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		WebhookListenAddr: os.Getenv("WEBHOOK_LISTEN_ADDR"),

		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate собирает все проблемы конфигурации разом.
func (c *Config) Validate() error {
	var errs []string

	if c.TelegramToken == "" {
		errs = append(errs, "TELEGRAM_TOKEN is required")
	}

	switch c.StorageBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLITE_DB_PATH cannot be empty for sqlite backend")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" {
			errs = append(errs, "SUPABASE_URL is required for supabase backend")
		}
		if c.SupabaseKey == "" {
			errs = append(errs, "SUPABASE_KEY is required for supabase backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid storage backend %q: must be %q or %q",
			c.StorageBackend, BackendSQLite, BackendSupabase))
	}

	if (c.WebhookURL == "") != (c.WebhookListenAddr == "") {
		errs = append(errs, "WEBHOOK_URL and WEBHOOK_LISTEN_ADDR must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
