package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("BATCH_MODE", "")
	t.Setenv("HISTORY_CAPACITY", "")
	t.Setenv("MAX_UPLOADS", "")
	t.Setenv("STUDIO_DB_PATH", "/tmp/studio-test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.GeminiAPIKey)
	assert.Equal(t, "sequential", cfg.BatchMode)
	assert.Equal(t, 50, cfg.HistoryCapacity)
	assert.Equal(t, 4, cfg.MaxUploads)
	assert.Equal(t, "/tmp/studio-test.db", cfg.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.TrendsCacheTTL)
}

func TestLoadClampsAndParses(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "  key-from-env  ")
	t.Setenv("BATCH_MODE", "Concurrent")
	t.Setenv("HISTORY_CAPACITY", "0")
	t.Setenv("MAX_UPLOADS", "9")
	t.Setenv("BATCH_INTERVAL_MS", "250")
	t.Setenv("DEBUG", "true")
	t.Setenv("MAX_CONCURRENT", "nope")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key-from-env", cfg.GeminiAPIKey)
	assert.Equal(t, "concurrent", cfg.BatchMode)
	assert.Equal(t, 1, cfg.HistoryCapacity)
	assert.Equal(t, 4, cfg.MaxUploads)
	assert.Equal(t, 250*time.Millisecond, cfg.BatchInterval)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 4, cfg.MaxConcurrent)
}

func TestLoadRejectsUnknownBatchMode(t *testing.T) {
	t.Setenv("BATCH_MODE", "random")
	_, err := Load()
	assert.Error(t, err)
}

func TestRequireTelegram(t *testing.T) {
	assert.Error(t, Config{}.RequireTelegram())
	assert.NoError(t, Config{TelegramToken: "123:abc"}.RequireTelegram())
}
