package client

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/makeasinger/studio/internal/config"
	"github.com/makeasinger/studio/internal/model"
)

// ChatCompleter produces an assistant reply for a conversation
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, system string, messages []model.ChatMessage) (string, error)
	IsConfigured() bool
}

// ChatClient talks to an OpenAI-compatible chat completion API (Groq by default)
type ChatClient struct {
	client *openai.Client
	model  string
	apiKey string
	log    zerolog.Logger
}

// NewChatClient creates a new chat completion client
func NewChatClient(cfg *config.GroqConfig, logger zerolog.Logger) *ChatClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &ChatClient{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		log:    logger.With().Str("client", "chat").Logger(),
	}
}

// ChatCompletion sends the system prompt followed by the conversation
func (c *ChatClient) ChatCompletion(ctx context.Context, system string, messages []model.ChatMessage) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   1024,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("model", c.model).Msg("chat completion failed")
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.log.Debug().Str("model", c.model).Int("tokens", resp.Usage.TotalTokens).Msg("chat completion")
	return resp.Choices[0].Message.Content, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ChatClient) IsConfigured() bool {
	return c.apiKey != ""
}
