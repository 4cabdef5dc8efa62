package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.Model = "" }},
		{"unknown provider", func(c *Config) { c.LLMProvider = "anthropic" }},
		{"zero debate rounds", func(c *Config) { c.DebateRounds = 0 }},
		{"zero timeout", func(c *Config) { c.TaskTimeout = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
		{"bad language", func(c *Config) { c.Language = "fr" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("KABUTO_MODEL", "deepseek-chat")
	t.Setenv("KABUTO_LLM_PROVIDER", "deepseek")
	t.Setenv("KABUTO_DEBATE_ROUNDS", "3")
	t.Setenv("KABUTO_MAX_CONCURRENT", "5")
	t.Setenv("KABUTO_LANGUAGE", "en")
	t.Setenv("KABUTO_TASK_TIMEOUT", "45s")
	t.Setenv("KABUTO_NOTIFY", "true")

	cfg := DefaultConfig()

	if cfg.Model != "deepseek-chat" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.LLMProvider != "deepseek" {
		t.Fatalf("provider = %q", cfg.LLMProvider)
	}
	if cfg.DebateRounds != 3 {
		t.Fatalf("debate rounds = %d", cfg.DebateRounds)
	}
	if cfg.MaxConcurrent != 5 {
		t.Fatalf("max concurrent = %d", cfg.MaxConcurrent)
	}
	if cfg.Language != "en" {
		t.Fatalf("language = %q", cfg.Language)
	}
	if cfg.TaskTimeout != 45*time.Second {
		t.Fatalf("timeout = %s", cfg.TaskTimeout)
	}
	if !cfg.Notify {
		t.Fatal("notify not enabled")
	}
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("KABUTO_DEBATE_ROUNDS", "lots")
	t.Setenv("KABUTO_TASK_TIMEOUT", "whenever")

	cfg := DefaultConfig()

	if cfg.DebateRounds != 1 {
		t.Fatalf("debate rounds = %d, want default 1", cfg.DebateRounds)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config should remain valid: %v", err)
	}
}
