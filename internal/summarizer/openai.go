package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
)

const defaultMaxRetries = 1

// Settings configures the chat completions backend.
type Settings struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// completionClient is the slice of the OpenAI client the summarizer needs.
type completionClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAISummarizer calls an OpenAI-compatible chat completions API.
type OpenAISummarizer struct {
	client      completionClient
	model       string
	maxTokens   int64
	temperature float64
	log         logger.Logger

	mu    sync.Mutex
	usage domain.Usage
}

// New returns an OpenAISummarizer when an API key is configured and the disabled summarizer otherwise.
func New(s Settings, log logger.Logger) Summarizer {
	if strings.TrimSpace(s.APIKey) == "" {
		return Disabled()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(defaultMaxRetries),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	if s.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(s.Timeout))
	}
	client := openai.NewClient(opts...)

	return newOpenAISummarizer(&client.Chat.Completions, s, log)
}

func newOpenAISummarizer(client completionClient, s Settings, log logger.Logger) *OpenAISummarizer {
	return &OpenAISummarizer{
		client:      client,
		model:       s.Model,
		maxTokens:   s.MaxTokens,
		temperature: s.Temperature,
		log:         logger.Ensure(log),
	}
}

func (s *OpenAISummarizer) Available() bool { return true }

// Usage returns a snapshot of the tokens consumed so far.
func (s *OpenAISummarizer) Usage() domain.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Summarize asks the backend for a one-unit summary of text. Failures are logged and returned
// in the Result; the usage counter only moves on success.
func (s *OpenAISummarizer) Summarize(ctx context.Context, text, style string) Result {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(text, style)),
		},
	}
	if s.maxTokens > 0 {
		params.MaxTokens = openai.Int(s.maxTokens)
	}
	params.Temperature = openai.Float(s.temperature)

	resp, err := s.client.New(ctx, params)
	if err != nil {
		return s.failed(fmt.Errorf("chat completion: %w", err))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return s.failed(errors.New("chat completion returned no choices"))
	}

	s.mu.Lock()
	s.usage.InputTokens += resp.Usage.PromptTokens
	s.usage.OutputTokens += resp.Usage.CompletionTokens
	s.mu.Unlock()

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	return Result{Summary: summary, OK: true}
}

func (s *OpenAISummarizer) failed(err error) Result {
	s.log.ErrorObj("summarization failed", "summarizer_error", map[string]any{
		"model": s.model,
		"error": err.Error(),
	})
	return Result{Err: err}
}
