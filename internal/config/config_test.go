package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.VisionBackend)
	assert.NotEmpty(t, cfg.CameraBackend)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LISTEN_ADDR", "VISION_BACKEND", "OPENAI_MODEL", "OPENAI_BASE_URL", "CAMERA_BACKEND",
		"CAMERA_FRONT_INDEX", "ANALYZE_TIMEOUT", "SESSION_TTL", "MAX_UPLOAD_BYTES",
		"ANALYZE_RATE_PER_MINUTE", "CAMERA_START_TIMEOUT", "CAMERA_SNAPSHOT_TIMEOUT", "LOG_FORMAT",
	} {
		// Setenv restores the original value when the test ends.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "openai", cfg.VisionBackend)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAIModel)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "browser", cfg.CameraBackend)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 1, cfg.CameraFrontIndex)
	assert.Equal(t, 60*time.Second, cfg.AnalyzeTimeout)
	assert.Equal(t, 30*time.Second, cfg.CameraStartTimeout)
	assert.Equal(t, 10*time.Second, cfg.CameraSnapshotTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 0, cfg.AnalyzeRatePerMinute)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("VISION_BACKEND", "claude")
	t.Setenv("CLAUDE_API_KEY", "sk-test123")
	t.Setenv("CAMERA_BACKEND", "local")
	t.Setenv("CAMERA_BACK_INDEX", "2")
	t.Setenv("ANALYZE_TIMEOUT", "0")
	t.Setenv("ANALYZE_RATE_PER_MINUTE", "6")
	t.Setenv("SESSION_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "claude", cfg.VisionBackend)
	assert.Equal(t, "sk-test123", cfg.ClaudeAPIKey)
	assert.Equal(t, "local", cfg.CameraBackend)
	assert.Equal(t, 2, cfg.CameraBackIndex)
	assert.Equal(t, time.Duration(0), cfg.AnalyzeTimeout)
	assert.Equal(t, 6, cfg.AnalyzeRatePerMinute)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"CAMERA_BACK_INDEX", "rear"},
		{"ANALYZE_TIMEOUT", "a minute"},
		{"CAMERA_SNAPSHOT_TIMEOUT", "soon"},
		{"SESSION_TTL", "30"},
		{"MAX_UPLOAD_BYTES", "20MB"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}
