package engine

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAISettings configures the OpenAI-compatible completion client. BaseURL
// may point at any API-compatible endpoint.
type OpenAISettings struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// OpenAIEngine implements Engine on top of the OpenAI chat completion API.
type OpenAIEngine struct {
	client *go_openai.Client
	model  string
	temp   float32
}

func NewOpenAIEngine(settings OpenAISettings) (*OpenAIEngine, error) {
	if settings.APIKey == "" {
		return nil, errors.New("no API key configured")
	}
	if settings.Model == "" {
		return nil, errors.New("no model configured")
	}

	cfg := go_openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		cfg.BaseURL = settings.BaseURL
	}

	return &OpenAIEngine{
		client: go_openai.NewClientWithConfig(cfg),
		model:  settings.Model,
		temp:   settings.Temperature,
	}, nil
}

func (e *OpenAIEngine) Complete(ctx context.Context, prompt string) (string, error) {
	log.Debug().
		Str("model", e.model).
		Int("prompt_len", len(prompt)).
		Msg("requesting completion")

	resp, err := e.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temp,
		Messages: []go_openai.ChatCompletionMessage{
			{Role: go_openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", NewTransientError("complete", errors.New("empty choices in response"))
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps provider errors onto the transient/fatal taxonomy.
// 429 and 5xx are rate limiting or provider-side trouble and retryable;
// 4xx auth and request errors are fatal.
func classifyOpenAIError(err error) error {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode == 408 || apiErr.HTTPStatusCode >= 500 {
			return NewTransientError("complete", err)
		}
		return NewFatalError("complete", err)
	}

	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500 {
			return NewTransientError("complete", err)
		}
		return NewFatalError("complete", err)
	}

	if IsTransient(err) {
		return NewTransientError("complete", err)
	}
	return NewFatalError("complete", err)
}

var _ Engine = (*OpenAIEngine)(nil)
