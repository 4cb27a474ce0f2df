package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultModel = openai.GPT3Dot5Turbo

	// suggestionDelimiter separates suggestions in a model reply
	suggestionDelimiter = "###"

	systemPrompt = "You are a personal finance assistant. Give specific, practical savings advice based on the user's transactions. " +
		"Start every suggestion with " + suggestionDelimiter + " so suggestions can be told apart."
)

var (
	ErrPromptTooLarge = errors.New("prompt leaves no room for a reply")
	ErrEmptyReply     = errors.New("completion returned no choices")
)

// Completer produces the assistant's next message for a conversation
type Completer interface {
	Complete(ctx context.Context, apiKey string, msgs []Message) (string, error)
}

// ChatClient calls an OpenAI-compatible chat completion endpoint.
// The API key is supplied per call since it belongs to the user session.
type ChatClient struct {
	baseURL string
	model   string
	counter TokenCounter
	logger  *zap.Logger
}

func NewChatClient(baseURL, model string, counter TokenCounter, logger *zap.Logger) *ChatClient {
	if model == "" {
		model = defaultModel
	}
	return &ChatClient{
		baseURL: baseURL,
		model:   model,
		counter: counter,
		logger:  logger,
	}
}

// Complete asks for a reply as long as whatever the prompt leaves of the
// model's context window.
func (c *ChatClient) Complete(ctx context.Context, apiKey string, msgs []Message) (string, error) {
	promptTokens, err := CountMessageTokens(c.counter, c.model, msgs)
	if err != nil {
		return "", fmt.Errorf("counting prompt tokens: %w", err)
	}
	maxTokens := ContextWindow(c.model) - promptTokens
	if maxTokens <= 0 {
		return "", fmt.Errorf("%w: %d prompt tokens", ErrPromptTooLarge, promptTokens)
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAIMessages(msgs),
		MaxTokens: maxTokens,
		N:         1,
	}

	c.logger.Debug("requesting completion",
		zap.String("model", c.model),
		zap.Int("messages", len(msgs)),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("max_tokens", maxTokens))

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	c.logger.Info("completion received",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		})
	}
	return out
}

// StripDelimiters removes every suggestion marker from s.
func StripDelimiters(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, suggestionDelimiter, ""))
}

// SplitSuggestions breaks a reply into individual suggestions. Replies without
// markers are split per line instead.
func SplitSuggestions(s string) []string {
	var parts []string
	if strings.Contains(s, suggestionDelimiter) {
		parts = strings.Split(s, suggestionDelimiter)
	} else {
		parts = strings.Split(s, "\n")
	}

	suggestions := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = StripDelimiters(p); p != "" {
			suggestions = append(suggestions, p)
		}
	}
	return suggestions
}
