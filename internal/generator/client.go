package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/draftforge/draftforge/internal/backoff"
)

// Provider configuration
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	// Default models
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"

	// Environment variables
	EnvGeneratorProvider = "DRAFTFORGE_GENERATOR_PROVIDER"
	EnvAnthropicAPIKey   = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"

	// anthropicVersion is the Anthropic API version to use
	anthropicVersion = "2023-06-01"

	defaultMaxTokens = 8192

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 250
	MaxBackoffMs      = 8000
	BackoffMultiplier = 2.0
)

// retrySchedule is the backoff curve for model API calls, slower than the
// embedding one because completions are rate-limited more aggressively.
func retrySchedule() backoff.Config {
	return backoff.Config{
		MaxAttempts: MaxRetries,
		BaseDelay:   time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:    time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier:  BackoffMultiplier,
	}
}

// chatClient completes a system+user prompt pair into model output text.
type chatClient interface {
	complete(ctx context.Context, system, user string) (string, error)
	close()
}

// openAIClient calls the OpenAI chat completions API
type openAIClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

func newOpenAIClient(apiKey, model string) *openAIClient {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &openAIClient{
		endpoint: "https://api.openai.com/v1/chat/completions",
		apiKey:   apiKey,
		model:    model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *openAIClient) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.2,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return apiResp.Choices[0].Message.Content, nil
}

func (c *openAIClient) close() {
	c.httpClient.CloseIdleConnections()
}

// anthropicClient calls the Anthropic messages API
type anthropicClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

func newAnthropicClient(apiKey, model string) *anthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &anthropicClient{
		endpoint: "https://api.anthropic.com/v1/messages",
		apiKey:   apiKey,
		model:    model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *anthropicClient) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": defaultMaxTokens,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var content string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return "", fmt.Errorf("no text content returned")
	}
	return content, nil
}

func (c *anthropicClient) close() {
	c.httpClient.CloseIdleConnections()
}
