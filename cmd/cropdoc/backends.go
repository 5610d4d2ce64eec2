package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/camera/local"
	"github.com/vbonduro/cropdoc/internal/camera/relay"
	"github.com/vbonduro/cropdoc/internal/capture"
	"github.com/vbonduro/cropdoc/internal/config"
	"github.com/vbonduro/cropdoc/internal/session"
	"github.com/vbonduro/cropdoc/internal/vision"
	claudevision "github.com/vbonduro/cropdoc/internal/vision/claude"
	geminivision "github.com/vbonduro/cropdoc/internal/vision/gemini"
	ollamavision "github.com/vbonduro/cropdoc/internal/vision/ollama"
	openaivision "github.com/vbonduro/cropdoc/internal/vision/openai"
)

func newAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (vision.Analyzer, error) {
	var analyzer vision.Analyzer
	switch cfg.VisionBackend {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY is empty; analyses will fail with an invalid key message")
		}
		logger.Info("using OpenAI vision backend", "model", cfg.OpenAIModel)
		analyzer = openaivision.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			return nil, errors.New("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		analyzer = claudevision.NewClaudeAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "gemini":
		g, err := geminivision.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
		if err != nil {
			return nil, err
		}
		logger.Info("using Gemini vision backend", "model", cfg.GeminiModel)
		analyzer = g
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		analyzer = ollamavision.NewOllamaAnalyzer(cfg.OllamaHost, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("unknown VISION_BACKEND %q", cfg.VisionBackend)
	}

	return vision.Limit(analyzer, newLimiter(cfg.AnalyzeRatePerMinute)), nil
}

// newLimiter returns nil (no limit) when perMinute is not positive.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

func captureOptions(cfg *config.Config) capture.Options {
	return capture.Options{
		StartTimeout:    cfg.CameraStartTimeout,
		SnapshotTimeout: cfg.CameraSnapshotTimeout,
		AnalyzeTimeout:  cfg.AnalyzeTimeout,
	}
}

// newSessionBuilder picks the camera backend. serverCamera reports whether
// frames come from the host rather than the browser.
func newSessionBuilder(cfg *config.Config, analyzer vision.Analyzer, logger *slog.Logger) (build session.Builder, serverCamera bool, err error) {
	opts := captureOptions(cfg)
	switch cfg.CameraBackend {
	case "browser":
		return func(l *slog.Logger) (camera.Device, *capture.Controller) {
			dev := relay.New(l)
			return dev, capture.New(dev, analyzer, opts, l)
		}, false, nil
	case "local":
		dev, err := local.New(local.Config{BackIndex: cfg.CameraBackIndex, FrontIndex: cfg.CameraFrontIndex}, logger)
		if err != nil {
			return nil, false, err
		}
		return func(l *slog.Logger) (camera.Device, *capture.Controller) {
			return dev, capture.New(dev, analyzer, opts, l)
		}, true, nil
	case "none":
		return func(l *slog.Logger) (camera.Device, *capture.Controller) {
			return camera.Unavailable{}, capture.New(camera.Unavailable{}, analyzer, opts, l)
		}, false, nil
	default:
		return nil, false, fmt.Errorf("unknown CAMERA_BACKEND %q", cfg.CameraBackend)
	}
}
