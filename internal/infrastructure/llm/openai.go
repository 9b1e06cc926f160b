package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ecopulse/internal/config"
	"ecopulse/internal/ports"
)

// Client implements ports.Transformer backed by OpenAI-compatible
// chat-completion APIs. The credential is supplied per call; the caller owns
// rotation and quarantine.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

var _ ports.Transformer = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.OpenAIConfig) *Client {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transform sends the instruction and text as a chat completion and returns
// the model's reply.
func (c *Client) Transform(ctx context.Context, instruction, text, credential string) (string, error) {
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("transformation client misconfigured")
	}
	if credential == "" {
		return "", fmt.Errorf("empty credential")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": instruction},
			{"role": "user", "content": text},
		},
		"temperature": 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transform: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("transformation error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
