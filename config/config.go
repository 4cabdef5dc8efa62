// Package config holds pipeline configuration loaded from the environment
// and an optional JSON config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// LLM settings
	LLMProvider string  `json:"llm_provider"` // "openai" or "deepseek"
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url"`
	APIKey      string  `json:"api_key"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`

	// Pipeline settings
	DebateRounds  int           `json:"debate_rounds"`
	TaskTimeout   time.Duration `json:"task_timeout"`
	MaxConcurrent int           `json:"max_concurrent"`

	// Output settings
	Language string `json:"language"` // "ja" or "en"
	LogLevel string `json:"log_level"`

	// Snapshot storage
	DataDir string `json:"data_dir"`

	// EDINET code override for companies with non-standard mapping
	EdinetCode string `json:"edinet_code"`

	// Data source credentials
	EdinetAPIKey string `json:"edinet_api_key"`
	EStatAppID   string `json:"estat_app_id"`

	// Longport broker quotes (optional)
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// Notification settings
	Notify           bool   `json:"notify"`
	TelegramBotToken string `json:"telegram_bot_token"`
	TelegramChatID   string `json:"telegram_chat_id"`

	// Watch mode schedule (cron expression)
	WatchSchedule string `json:"watch_schedule"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	cfg := &Config{
		LLMProvider:   "openai",
		Model:         "gpt-4o-mini",
		Temperature:   0.2,
		MaxTokens:     8192,
		DebateRounds:  1,
		TaskTimeout:   30 * time.Second,
		MaxConcurrent: 3,
		Language:      "ja",
		LogLevel:      "info",
		DataDir:       filepath.Join(home, ".kabuto"),
		WatchSchedule: "0 8 * * MON-FRI",
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("KABUTO_LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("KABUTO_MODEL"); val != "" {
		c.Model = val
	}
	if val := os.Getenv("KABUTO_BASE_URL"); val != "" {
		c.BaseURL = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.APIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" && c.LLMProvider == "deepseek" {
		c.APIKey = val
	}
	if val := os.Getenv("KABUTO_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 32); err == nil {
			c.Temperature = float32(f)
		}
	}
	if val := os.Getenv("KABUTO_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}

	if val := os.Getenv("KABUTO_DEBATE_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.DebateRounds = v
		}
	}
	if val := os.Getenv("KABUTO_TASK_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.TaskTimeout = d
		}
	}
	if val := os.Getenv("KABUTO_MAX_CONCURRENT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxConcurrent = v
		}
	}

	if val := os.Getenv("KABUTO_LANGUAGE"); val != "" {
		c.Language = val
	}
	if val := os.Getenv("KABUTO_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("KABUTO_DATA_DIR"); val != "" {
		c.DataDir = val
	}

	if val := os.Getenv("KABUTO_EDINET_CODE"); val != "" {
		c.EdinetCode = val
	}
	if val := os.Getenv("EDINET_API_KEY"); val != "" {
		c.EdinetAPIKey = val
	}
	if val := os.Getenv("ESTAT_APP_ID"); val != "" {
		c.EStatAppID = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("KABUTO_NOTIFY"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Notify = enabled
		}
	}
	if val := os.Getenv("TELEGRAM_BOT_TOKEN"); val != "" {
		c.TelegramBotToken = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		c.TelegramChatID = val
	}
	if val := os.Getenv("KABUTO_WATCH_SCHEDULE"); val != "" {
		c.WatchSchedule = val
	}
}

// Validate reports configuration errors that must stop the pipeline before
// orchestration begins. Operational failures are handled downstream.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai", "deepseek":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.DebateRounds < 1 {
		return fmt.Errorf("debate_rounds must be >= 1, got %d", c.DebateRounds)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("task_timeout must be positive, got %s", c.TaskTimeout)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be >= 1, got %d", c.MaxConcurrent)
	}
	switch c.Language {
	case "ja", "en":
	default:
		return fmt.Errorf("language must be \"ja\" or \"en\", got %q", c.Language)
	}
	return nil
}

// SnapshotDBPath returns the path of the snapshot database under DataDir.
func (c *Config) SnapshotDBPath() string {
	return filepath.Join(c.DataDir, "snapshots.db")
}

func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", c.DataDir, err)
	}
	return nil
}
