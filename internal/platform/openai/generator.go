package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/generation"
)

// LLM7BaseURL is the OpenAI-compatible endpoint of the LLM7 gateway.
const LLM7BaseURL = "https://api.llm7.io/v1"

// llm7AnonymousKey is accepted by LLM7 for unauthenticated use
const llm7AnonymousKey = "unused"

// Generator sends conversations to a chat completions endpoint.
type Generator struct {
	client openai.Client
	logger *slog.Logger
}

// NewGenerator creates a generator for the llm7 or openai provider.
// Client-side retries are disabled; a failed call fails the job.
func NewGenerator(cfg config.LLMConfig, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	baseURL, apiKey := cfg.BaseURL, cfg.APIKey
	switch cfg.Provider {
	case "llm7":
		if baseURL == "" {
			baseURL = LLM7BaseURL
		}
		if apiKey == "" {
			apiKey = llm7AnonymousKey
		}
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Generator{
		client: openai.NewClient(opts...),
		logger: logger.With("component", "openai", "provider", cfg.Provider),
	}, nil
}

// Generate requests one chat completion and returns its text.
func (g *Generator) Generate(ctx context.Context, model string, messages []generation.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toParams(messages),
	}

	g.logger.DebugContext(ctx, "requesting chat completion",
		"model", model,
		"message_count", len(messages))

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		g.logger.ErrorContext(ctx, "chat completion failed", "model", model, "error", err)
		return "", fmt.Errorf("%w: chat completion: %v", generation.ErrExternalService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", generation.ErrInvalidResponse)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: completion stopped by content filter", generation.ErrContentBlocked)
	}
	return decodeReasoningContent(choice.Message.Content), nil
}

func toParams(messages []generation.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case domain.RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			params = append(params, openai.UserMessage(msg.Content))
		}
	}
	return params
}

// reasoningEnvelope is how some LLM7 deepseek deployments wrap the answer
type reasoningEnvelope struct {
	ReasoningContent string `json:"reasoning_content"`
}

// decodeReasoningContent unwraps a reply that arrived as a JSON object with a
// reasoning_content field. Any other reply is returned unchanged.
func decodeReasoningContent(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return content
	}

	var env reasoningEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil || env.ReasoningContent == "" {
		return content
	}
	return env.ReasoningContent
}
