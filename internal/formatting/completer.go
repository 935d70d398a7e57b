package formatting

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Default models per provider
const (
	DefaultOpenAIModel = openai.GPT4o
	DefaultGeminiModel = "gemini-2.5-flash"
)

// Completer sends a single prompt to a language model and returns its reply
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name
	Name() string
}

// Config selects and configures a provider
type Config struct {
	Provider  string // "none", "openai" or "gemini"
	Model     string // Empty selects the provider default
	OpenAIKey string
	GeminiKey string
}

// NewCompleter creates the completer for config.Provider. It returns nil and
// no error when formatting is disabled.
func NewCompleter(ctx context.Context, config Config) (Completer, error) {
	switch strings.ToLower(config.Provider) {
	case "", "none":
		return nil, nil

	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required for the openai formatter")
		}
		return NewOpenAICompleter(config.OpenAIKey, config.Model), nil

	case "gemini":
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required for the gemini formatter")
		}
		return NewGeminiCompleter(ctx, config.GeminiKey, config.Model)

	default:
		return nil, fmt.Errorf("unknown formatter provider: %s", config.Provider)
	}
}

// OpenAICompleter uses the chat completions API
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates an OpenAI completer
func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	return NewOpenAICompleterWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAICompleterWithConfig creates an OpenAI completer for a custom
// endpoint, e.g. an OpenAI-compatible proxy
func NewOpenAICompleterWithConfig(config openai.ClientConfig, model string) *OpenAICompleter {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Name implements Completer
func (c *OpenAICompleter) Name() string {
	return "openai"
}

// Complete implements Completer
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// GeminiCompleter uses the Gemini API
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a Gemini completer
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiCompleter{client: client, model: model}, nil
}

// Name implements Completer
func (c *GeminiCompleter) Name() string {
	return "gemini"
}

// Complete implements Completer
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no response from Gemini")
	}
	return text, nil
}
