// Package genai is the HTTP client for the generative model provider.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wishforge/internal/extract"
)

// Client implements extract.ModelClient against a completion-style HTTP
// API. Constructed once at bootstrap and passed by reference; it holds no
// mutable state.
type Client struct {
	baseURL    string
	apiKey     string
	modelName  string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, modelName string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		modelName:  modelName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Text string `json:"text"`
}

func (c *Client) Complete(ctx context.Context, prompt string, params extract.SamplingParams) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.modelName,
		Prompt:      prompt,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("model provider returned %d: %s", resp.StatusCode, payload)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	return out.Text, nil
}

var _ extract.ModelClient = (*Client)(nil)
