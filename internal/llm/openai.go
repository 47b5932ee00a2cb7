package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"prwarden/internal/config"
	"prwarden/internal/logging"
)

// Base URLs by provider prefix. Model names follow the
// "provider/model" convention ("deepseek/deepseek-chat"); a bare model
// name is treated as OpenAI.
var providerBaseURLs = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com/v1",
}

// Client implements TextGenerator for OpenAI-compatible chat APIs.
type Client struct {
	model       string
	apiKey      string
	baseURL     string
	temperature float64
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *logging.Logger
}

// NewClient builds a Client from the LLM configuration. The explicit
// BaseURL wins over the one derived from the model's provider prefix.
func NewClient(cfg config.LLMConfig, logger *logging.Logger) *Client {
	provider, model := splitModel(cfg.Model)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = providerBaseURLs[provider]
	}
	if baseURL == "" {
		baseURL = providerBaseURLs["openai"]
	}

	return &Client{
		model:       model,
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     newLimiter(cfg.RequestsPerMinute, cfg.BurstLimit),
		logger:      logger,
	}
}

func newLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	b := burst
	if b <= 0 {
		b = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), b)
}

// splitModel separates an optional provider prefix from the wire model
// name.
func splitModel(name string) (provider, model string) {
	if i := strings.Index(name, "/"); i > 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateText sends the prompt as a single user message and returns
// the completion text. Calls block on the rate limiter; no generation
// cap is sent, the configured token budget bounds the prompt instead.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("sending chat completion", "model", c.model, "prompt_bytes", len(prompt))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("api error: %s", result.Error.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	return result.Choices[0].Message.Content, nil
}
