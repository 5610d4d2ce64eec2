package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr    string
	VisionBackend string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	ClaudeAPIKey  string
	ClaudeModel   string
	GeminiAPIKey  string
	GeminiModel   string
	OllamaHost    string
	OllamaModel   string

	CameraBackend         string
	CameraBackIndex       int
	CameraFrontIndex      int
	CameraStartTimeout    time.Duration
	CameraSnapshotTimeout time.Duration

	AnalyzeTimeout       time.Duration
	AnalyzeRatePerMinute int
	SessionTTL           time.Duration
	MaxUploadBytes       int64

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads the configuration from the environment. Malformed numeric or
// duration values are reported rather than silently replaced by defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		VisionBackend: getEnv("VISION_BACKEND", "openai"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ClaudeAPIKey:  getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:   getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llava"),
		CameraBackend: getEnv("CAMERA_BACKEND", "browser"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		LogFile:       getEnv("LOG_FILE", ""),
	}

	var err error
	if cfg.CameraBackIndex, err = getEnvInt("CAMERA_BACK_INDEX", 0); err != nil {
		return nil, err
	}
	if cfg.CameraFrontIndex, err = getEnvInt("CAMERA_FRONT_INDEX", 1); err != nil {
		return nil, err
	}
	if cfg.AnalyzeRatePerMinute, err = getEnvInt("ANALYZE_RATE_PER_MINUTE", 0); err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 20<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	if cfg.CameraStartTimeout, err = getEnvDuration("CAMERA_START_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CameraSnapshotTimeout, err = getEnvDuration("CAMERA_SNAPSHOT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AnalyzeTimeout, err = getEnvDuration("ANALYZE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return d, nil
}
