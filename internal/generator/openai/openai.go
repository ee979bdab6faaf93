package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	OllamaBaseURL = "http://localhost:11434/v1"
	DefaultModel  = "llama3"
)

// Config configures the OpenAI-compatible chat generator.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Generator answers prompts through an OpenAI-compatible chat completion API.
type Generator struct {
	client      *goopenai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewGenerator creates a chat generator. An API key is mandatory only for the hosted OpenAI API.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" && cfg.BaseURL == OpenAIBaseURL {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	oc := goopenai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: t}
	return &Generator{
		client:      goopenai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Name returns the identifier of this generator implementation.
func (g *Generator) Name() string { return "openai" }

// Generate sends the system instruction (when non-empty) and the user prompt
// as a single chat turn and returns the first choice verbatim.
func (g *Generator) Generate(ctx context.Context, systemInstruction, userPrompt string) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: systemInstruction})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: userPrompt})

	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", g.fail(err)
	}
	if len(resp.Choices) == 0 {
		return "", g.fail(errors.New("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *Generator) fail(err error) error {
	return &domain.GenerationServiceError{Provider: g.Name() + "/" + g.model, Err: err}
}
