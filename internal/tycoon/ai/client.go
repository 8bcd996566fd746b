// Package ai talks to an OpenAI-compatible chat model to generate game
// content. Every caller treats a failure as a signal to use static content
// instead.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// ErrDisabled is returned when generation is switched off by configuration.
var ErrDisabled = errors.New("ai generation disabled")

// Kind selects what to generate.
type Kind string

const (
	KindMarketEvent Kind = "market_event"
	KindProject     Kind = "project"
	KindEmployee    Kind = "employee_name"
)

// Generator produces structured content for a kind, given free-form context.
type Generator interface {
	Generate(ctx context.Context, kind Kind, input map[string]interface{}) (json.RawMessage, error)
}

type Config struct {
	Enabled     bool
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

var prompts = map[Kind]string{
	KindMarketEvent: `You design market events for a software company tycoon game.
Reply with a single JSON object and nothing else:
{"name": string, "description": string, "effect_type": "revenue"|"progress"|"cost"|"bonus", "effect_value": number between -0.5 and 0.5}`,
	KindProject: `You write client projects for a software company tycoon game.
Reply with a single JSON object and nothing else:
{"title": string, "description": string, "difficulty": integer 1-10, "reward": number}`,
	KindEmployee: `You invent names for software developers in a tycoon game.
Reply with a single JSON object and nothing else: {"name": string}`,
}

// Client is a Generator backed by an eino chat model.
type Client struct {
	chat    model.BaseChatModel
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient builds the chat model when generation is enabled. A client
// whose model could not be built behaves as disabled.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	c := &Client{timeout: cfg.Timeout, logger: logger.Named("ai_client")}
	if !cfg.Enabled || cfg.APIKey == "" {
		return c
	}

	chatCfg := &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
	if cfg.MaxTokens > 0 {
		chatCfg.MaxTokens = &cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		chatCfg.Temperature = ptrFloat32(float32(cfg.Temperature))
	}
	chat, err := openai.NewChatModel(context.Background(), chatCfg)
	if err != nil {
		c.logger.Warn("Failed to create chat model, generation disabled", zap.Error(err))
		return c
	}
	c.chat = chat
	return c
}

// Generate asks the model for content of kind and returns the JSON object
// it produced.
func (c *Client) Generate(ctx context.Context, kind Kind, input map[string]interface{}) (json.RawMessage, error) {
	if c.chat == nil {
		return nil, ErrDisabled
	}
	system, ok := prompts[kind]
	if !ok {
		return nil, fmt.Errorf("unknown generation kind %q", kind)
	}

	userContent, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	reply, err := c.chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(string(userContent)),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	raw, err := extractJSON(reply.Content)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Generated content",
		zap.String("kind", string(kind)),
		zap.Duration("took", time.Since(start)),
	)
	return raw, nil
}

func ptrFloat32(f float32) *float32 {
	return &f
}

// extractJSON pulls the first JSON object out of a model reply, tolerating
// markdown code fences and surrounding prose.
func extractJSON(content string) (json.RawMessage, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no json object in reply")
	}
	raw := json.RawMessage(content[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid json in reply")
	}
	return raw, nil
}
