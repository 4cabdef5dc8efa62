// Package llm wraps the chat-model providers behind a small completion
// interface so the pipeline can be tested with fakes.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/kabuto-ai/kabuto/config"
)

// Provider is the completion contract consumed by all agents.
type Provider interface {
	// Complete runs a chat completion and returns the text content.
	Complete(ctx context.Context, system, user string) (string, error)
	// CompleteJSON runs a completion expected to return a JSON object.
	CompleteJSON(ctx context.Context, system, user string) (map[string]any, error)
}

// Reasoning models manage temperature internally and only accept 1.0.
var reasoningModelPatterns = []string{"o1", "o3", "deepseek-r1", "kimi-k2", "kimi-thinking"}

func isReasoningModel(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range reasoningModelPatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// Client is the eino-backed Provider used in production.
type Client struct {
	chatModel model.BaseChatModel
	modelName string
	timeout   time.Duration
	log       *slog.Logger
}

func NewClient(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Client, error) {
	temperature := cfg.Temperature
	if isReasoningModel(cfg.Model) {
		temperature = 1.0
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch cfg.LLMProvider {
	case "deepseek":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com/v1"
		}
		chatModel, err = deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   baseURL,
			MaxTokens: cfg.MaxTokens,
		})
	default:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		maxTokens := cfg.MaxTokens
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     baseURL,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}

	return &Client{
		chatModel: chatModel,
		modelName: cfg.Model,
		timeout:   cfg.TaskTimeout,
		log:       log,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.modelName
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debug("llm call", "model", c.modelName)
	msg, err := c.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return msg.Content, nil
}

func (c *Client) CompleteJSON(ctx context.Context, system, user string) (map[string]any, error) {
	raw, err := c.Complete(ctx, system+"\n\nRespond with a single valid JSON object and nothing else.", user)
	if err != nil {
		return nil, err
	}
	return DecodeJSON(raw)
}

// DecodeJSON extracts a JSON object from a model response, tolerating
// markdown code fences and prose around the object.
func DecodeJSON(raw string) (map[string]any, error) {
	s := strings.TrimSpace(raw)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode json response: %w", err)
	}
	return out, nil
}
