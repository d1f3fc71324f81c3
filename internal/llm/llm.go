package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vidyavistaar/portal/internal/model"
)

// Generator produces a single reply for a system instruction and user content.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Streamer produces a reply incrementally. onDelta is called for every chunk
// in arrival order; the full reply is returned once the stream ends.
type Streamer interface {
	Stream(ctx context.Context, system, user string, onDelta func(string) error) (string, error)
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a new LLM client. A zero timeout leaves calls bounded only by ctx.
func New(baseURL, apiKey, modelName string, timeout time.Duration) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: timeout,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Ping checks that the endpoint answers and knows the configured model.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return wrap(fmt.Errorf("list models: %w", err))
	}
	for _, m := range models.Models {
		if m.ID == c.model || strings.TrimPrefix(m.ID, "models/") == c.model {
			return nil
		}
	}
	slog.Warn("model not listed by endpoint", "model", c.model, "available", len(models.Models))
	return nil
}

// Generate sends one system instruction and one user turn and returns the reply text.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, c.request(system, user))
	if err != nil {
		return "", wrap(fmt.Errorf("LLM API call: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", wrap(errors.New("LLM returned no choices"))
	}

	text := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "model", c.model, "chars", len(text))
	return text, nil
}

// Stream is Generate with incremental delivery.
func (c *Client) Stream(ctx context.Context, system, user string, onDelta func(string) error) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := c.request(system, user)
	req.Stream = true
	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", wrap(fmt.Errorf("LLM stream: %w", err))
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), wrap(fmt.Errorf("LLM stream recv: %w", err))
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return sb.String(), err
			}
		}
	}
}

func (c *Client) request(system, user string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.4,
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func wrap(err error) error {
	return &model.ExternalServiceError{Service: "llm", Err: err}
}
