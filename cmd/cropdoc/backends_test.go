package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/camera/relay"
	"github.com/vbonduro/cropdoc/internal/config"
	claudevision "github.com/vbonduro/cropdoc/internal/vision/claude"
	geminivision "github.com/vbonduro/cropdoc/internal/vision/gemini"
	ollamavision "github.com/vbonduro/cropdoc/internal/vision/ollama"
	openaivision "github.com/vbonduro/cropdoc/internal/vision/openai"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() *config.Config {
	return &config.Config{
		VisionBackend: "openai",
		OpenAIModel:   "gpt-4.1-mini",
		ClaudeModel:   "claude-sonnet-4-5",
		GeminiModel:   "gemini-2.5-flash",
		OllamaHost:    "http://localhost:11434",
		OllamaModel:   "llava",
		CameraBackend: "browser",
	}
}

func TestNewAnalyzerBackends(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	a, err := newAnalyzer(ctx, cfg, discardLogger)
	require.NoError(t, err)
	assert.IsType(t, &openaivision.OpenAIAnalyzer{}, a)

	cfg = testConfig()
	cfg.VisionBackend = "claude"
	cfg.ClaudeAPIKey = "sk-ant-test"
	a, err = newAnalyzer(ctx, cfg, discardLogger)
	require.NoError(t, err)
	assert.IsType(t, &claudevision.ClaudeAnalyzer{}, a)

	cfg = testConfig()
	cfg.VisionBackend = "gemini"
	cfg.GeminiAPIKey = "gm-test"
	a, err = newAnalyzer(ctx, cfg, discardLogger)
	require.NoError(t, err)
	assert.IsType(t, &geminivision.GeminiAnalyzer{}, a)

	cfg = testConfig()
	cfg.VisionBackend = "ollama"
	a, err = newAnalyzer(ctx, cfg, discardLogger)
	require.NoError(t, err)
	assert.IsType(t, &ollamavision.OllamaAnalyzer{}, a)
}

func TestNewAnalyzerErrors(t *testing.T) {
	cfg := testConfig()
	cfg.VisionBackend = "claude"
	_, err := newAnalyzer(context.Background(), cfg, discardLogger)
	assert.ErrorContains(t, err, "CLAUDE_API_KEY")

	cfg = testConfig()
	cfg.VisionBackend = "gemini"
	_, err = newAnalyzer(context.Background(), cfg, discardLogger)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.VisionBackend = "tesseract"
	_, err = newAnalyzer(context.Background(), cfg, discardLogger)
	assert.ErrorContains(t, err, `unknown VISION_BACKEND "tesseract"`)
}

func TestNewAnalyzerRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.AnalyzeRatePerMinute = 6
	a, err := newAnalyzer(context.Background(), cfg, discardLogger)
	require.NoError(t, err)

	_, plain := a.(*openaivision.OpenAIAnalyzer)
	assert.False(t, plain, "expected the analyzer to be wrapped by the limiter")
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, newLimiter(0))
	assert.Nil(t, newLimiter(-1))

	l := newLimiter(2)
	require.NotNil(t, l)
	assert.Equal(t, 2, l.Burst())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestNewSessionBuilder(t *testing.T) {
	analyzer := openaivision.NewOpenAIAnalyzer("", "gpt-4.1-mini", "")

	cfg := testConfig()
	build, serverCamera, err := newSessionBuilder(cfg, analyzer, discardLogger)
	require.NoError(t, err)
	assert.False(t, serverCamera)
	dev, ctrl := build(discardLogger)
	assert.IsType(t, &relay.Device{}, dev)
	require.NotNil(t, ctrl)
	assert.NoError(t, ctrl.Close())

	cfg.CameraBackend = "none"
	build, serverCamera, err = newSessionBuilder(cfg, analyzer, discardLogger)
	require.NoError(t, err)
	assert.False(t, serverCamera)
	dev, _ = build(discardLogger)
	assert.Equal(t, camera.Unavailable{}, dev)

	cfg.CameraBackend = "webcam"
	_, _, err = newSessionBuilder(cfg, analyzer, discardLogger)
	assert.ErrorContains(t, err, `unknown CAMERA_BACKEND "webcam"`)
}
