package summary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultModel is the completion model used for both summary tiers.
	DefaultModel = "gpt-4o-mini"

	// MaxCompletionTokens caps each completion response.
	MaxCompletionTokens = 2000

	// Temperature keeps summaries near-deterministic.
	Temperature = 0.15
)

// CompletionClient issues one chat completion per call. The narrow interface
// keeps the summarizer's failure paths testable without a live API.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client is the openai-go backed CompletionClient.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a completion client from the environment. OPENAI_API_KEY
// is required; OPENAI_BASE_URL optionally points at a compatible gateway.
// An empty model selects DefaultModel.
func NewClient(model string) (*Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if model == "" {
		model = DefaultModel
	}

	var opts []option.RequestOption
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	// openai-go reads OPENAI_API_KEY from the environment itself.
	client := openai.NewClient(opts...)

	return &Client{client: &client, model: model}, nil
}

// Complete issues one chat completion and returns the text of the first
// choice. Rate limit responses are retried with exponential backoff; all
// other failures are permanent.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	var answer string

	operation := func() error {
		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			},
			Model:       openai.ChatModel(c.model),
			MaxTokens:   openai.Int(MaxCompletionTokens),
			Temperature: openai.Float(Temperature),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // Will retry with backoff
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("completion returned no choices"))
		}
		answer = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return answer, err
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
