// Package llm is the agent invocation boundary: it sends a conversation to
// an OpenRouter-compatible chat-completions API and returns the reply text
// with usage metadata and a transcript handle. Transport failures are
// retried here with backoff; everything above this layer treats Invoke as
// opaque.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/applesforbots/internal/transcript"
)

// Environment variables consumed by ConfigFromEnv.
const (
	EnvAPIKey  = "OPENROUTER_API_KEY"
	EnvBaseURL = "APPLESFORBOTS_BASE_URL"

	defaultBaseURL = "https://openrouter.ai/api/v1"
)

// Response is the result of a successful invocation.
type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64

	// TranscriptID is the provenance handle for this call's record in the
	// transcript store; empty when no store is attached.
	TranscriptID string
}

// Invoker is the boundary the orchestrator depends on.
type Invoker interface {
	Invoke(ctx context.Context, model string, conv *Conversation) (*Response, error)
}

// Config holds transport configuration. It is threaded in explicitly; the
// client reads no process-wide state after construction.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ConfigFromEnv parses transport configuration from the environment.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL: defaultBaseURL,
		Timeout: 120 * time.Second,
	}
	cfg.APIKey = os.Getenv(EnvAPIKey)
	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("%s environment variable is required", EnvAPIKey)
	}
	if base := os.Getenv(EnvBaseURL); base != "" {
		cfg.BaseURL = base
	}
	return cfg, nil
}

// Recorder receives a record of every call. *transcript.Store implements
// it; tests substitute their own.
type Recorder interface {
	Record(rec transcript.Record) (string, error)
}

// Client calls an OpenRouter-compatible API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      RetryPolicy
	clock      quartz.Clock
	logger     *log.Logger
	recorder   Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides the transport retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithClock substitutes the clock used for backoff sleeps.
func WithClock(clock quartz.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithRecorder attaches a transcript recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the given transport configuration.
func NewClient(cfg Config, logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      DefaultRetryPolicy(),
		clock:      quartz.NewReal(),
		logger:     logger.WithPrefix("llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string      `json:"model"`
	Messages    []Message   `json:"messages"`
	Temperature float64     `json:"temperature"`
	Usage       *usageHints `json:"usage,omitempty"`
}

type usageHints struct {
	Include bool `json:"include"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		Cost             float64 `json:"cost"`
	} `json:"usage"`
}

// Invoke sends the conversation to model, retrying transport failures per
// the client's RetryPolicy. Every call, including failed ones, is recorded
// with the attached recorder.
func (c *Client) Invoke(ctx context.Context, model string, conv *Conversation) (*Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    conv.Messages(),
		Temperature: 0,
		Usage:       &usageHints{Include: true},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	started := time.Now()
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := sleep(ctx, c.clock, c.retry.delayFor(attempt)); err != nil {
			return nil, err
		}

		resp, err := c.doRequest(ctx, body)
		if err != nil {
			lastErr = err
			c.logger.Warn("model call failed",
				"model", model,
				"attempt", attempt,
				"maxAttempts", c.retry.MaxAttempts,
				"error", err)
			continue
		}

		resp.TranscriptID = c.record(model, body, resp, nil, started)
		return resp, nil
	}

	c.record(model, body, nil, lastErr, started)
	return nil, fmt.Errorf("model call failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, truncate(string(data), 200))
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("response contained no content")
	}

	return &Response{
		Content:          chat.Choices[0].Message.Content,
		Model:            chat.Model,
		PromptTokens:     chat.Usage.PromptTokens,
		CompletionTokens: chat.Usage.CompletionTokens,
		Cost:             chat.Usage.Cost,
	}, nil
}

// record writes a transcript entry and returns its handle. Recording is
// best effort; a store failure is logged, not surfaced.
func (c *Client) record(model string, request []byte, resp *Response, callErr error, started time.Time) string {
	if c.recorder == nil {
		return ""
	}

	rec := transcript.Record{
		Model:      model,
		Request:    json.RawMessage(request),
		DurationMS: time.Since(started).Milliseconds(),
	}
	if resp != nil {
		rec.Response = resp.Content
		rec.PromptTokens = resp.PromptTokens
		rec.CompletionTokens = resp.CompletionTokens
		rec.Cost = resp.Cost
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}

	id, err := c.recorder.Record(rec)
	if err != nil {
		c.logger.Error("failed to record transcript", "model", model, "error", err)
		return ""
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
