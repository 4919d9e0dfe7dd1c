package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	for key, value := range map[string]string{
		"PG_HOST":        "localhost",
		"PG_PORT":        "5432",
		"PG_DB_NAME":     "stocks",
		"PG_USER":        "postgres",
		"PG_PASSWORD":    "postgres",
		"TELEGRAM_TOKEN": "token",
		"REDIS_HOST":     "localhost",
		"REDIS_PORT":     "6379",
		"QUOTE_API_KEY":  "key",
	} {
		t.Setenv(key, value)
	}
}

// unsetEnv удаляет переменную на время теста и возвращает прежнее значение после
func unsetEnv(t *testing.T, key string) {
	t.Helper()

	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_WithoutGoogleDrive(t *testing.T) {
	setRequiredEnv(t)
	unsetEnv(t, "GOOGLE_DRIVE_CREDENTIALS_FILE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.GoogleDrive.CredentialsFile)
	assert.Equal(t, 72*time.Hour, cfg.GoogleDrive.FileTTL)
	assert.Equal(t, -1, cfg.Tracker.PriceRefreshConcurrency)
	assert.Equal(t, "0 0 3 * * *", cfg.Jobs.DeleteOldReportsCrontab)
	assert.Empty(t, cfg.Telegram.AllowedChatIDs)
}

func TestLoad_Values(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GOOGLE_DRIVE_CREDENTIALS_FILE", "credentials.json")
	t.Setenv("TELEGRAM_ALLOWED_CHAT_IDS", "1,-100200")
	t.Setenv("PRICE_REFRESH_CONCURRENCY", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "credentials.json", cfg.GoogleDrive.CredentialsFile)
	assert.Equal(t, []int64{1, -100200}, cfg.Telegram.AllowedChatIDs)
	assert.Equal(t, 4, cfg.Tracker.PriceRefreshConcurrency)
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	unsetEnv(t, "TELEGRAM_TOKEN")

	_, err := Load()
	assert.ErrorContains(t, err, "TELEGRAM_TOKEN")
}
