package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"auditgraph/internal/review"
)

const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultMaxRetries = 3
	defaultTimeout    = 120 * time.Second
	defaultRetryDelay = time.Second
)

// Config configures the OpenAI-compatible chat endpoint.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int           // total attempts per structured call
	RetryDelay time.Duration // first backoff delay, doubled per attempt
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	JSONMode    bool // ask for a json_object response
}

// Client talks to a /v1/chat/completions endpoint in JSON mode.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// APIError is a non-200 response from the model endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error %d: %s", e.StatusCode, e.Body)
}

// TransportError is a request that never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "llm request failed: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// Chat sends one completion request and returns the message content.
// It does not retry; see Complete and Structured.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: OPENAI_API_KEY가 설정되지 않았습니다.", review.ErrConfiguration)
	}

	payload := chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("reading response body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: decoding chat response: %w", review.ErrParse, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", review.ErrParse)
	}

	c.logger.Debug("llm: completion received",
		"model", decoded.Model,
		"finish_reason", decoded.Choices[0].FinishReason,
		"prompt_tokens", decoded.Usage.PromptTokens,
		"completion_tokens", decoded.Usage.CompletionTokens,
	)
	return decoded.Choices[0].Message.Content, nil
}

// Complete runs Chat with the retry policy and returns the reply text.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var content string
	err := c.retryWithBackoff(ctx, func() error {
		out, err := c.Chat(ctx, req)
		if err != nil {
			return err
		}
		content = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Structured runs Chat in JSON mode and hands the reply to decode, retrying
// transient failures and replies decode rejects with review.ErrParse.
func (c *Client) Structured(ctx context.Context, req ChatRequest, decode func(content string) error) error {
	req.JSONMode = true
	return c.retryWithBackoff(ctx, func() error {
		content, err := c.Chat(ctx, req)
		if err != nil {
			return err
		}
		return decode(content)
	})
}
