// Package llm talks to an OpenAI-compatible chat completion endpoint.
// Every call goes through a circuit breaker so a failing provider is
// reported immediately instead of holding request goroutines.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/mrlokans/readnext/internal/config"
	"github.com/mrlokans/readnext/internal/resilience"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("AI provider is not configured")

	// ErrEmptyResponse is returned when the model produced no content.
	ErrEmptyResponse = errors.New("No response from AI")
)

// Completer runs one chat completion and returns the first choice's content.
type Completer interface {
	Complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error)
}

// chatAPI is the subset of *openai.Client used here.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client is a breaker-guarded Completer.
type Client struct {
	api     chatAPI
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[string]
}

// NewClient builds a client from configuration. It returns ErrNotConfigured
// when the API key is empty so callers can disable AI features up front.
func NewClient(cfg config.OpenAI) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}

	return newClient(openai.NewClientWithConfig(oc), cfg), nil
}

func newClient(api chatAPI, cfg config.OpenAI) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		api:     api,
		timeout: timeout,
		breaker: resilience.NewBreaker[string](resilience.BreakerConfig{
			Name:             "openai",
			FailureThreshold: cfg.BreakerFailures,
			OpenTimeout:      cfg.BreakerOpenDelay,
		}),
	}
}

// Complete sends req and returns the first choice's message content.
func (c *Client) Complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	return c.breaker.Execute(func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// StatusCode extracts the provider's HTTP status from err, or 0.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
