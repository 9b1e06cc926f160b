package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ecopulse/internal/ports"
)

// Client talks to a Telegram Bot API deployment. View counts require a
// deployment that exposes per-message statistics (e.g. a local bot-api
// build); when the endpoint is absent the query fails and callers degrade to
// their time-based behavior.
type Client struct {
	baseURL  string
	botToken string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.Sink = (*Client)(nil)

// NewClient registers the API base URL and bot token. The HTTP timeout is
// sized for long polling.
func NewClient(baseURL, botToken string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		botToken: botToken,
		client:   &http.Client{Timeout: 40 * time.Second},
		logger:   logger,
	}
}

// Send posts a message and returns its identifier. A 429 from the transport
// surfaces as *ports.RateLimitError carrying the demanded wait.
func (c *Client) Send(ctx context.Context, channelID int64, text string) (int64, error) {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(channelID, 10))
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	var msg struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call(ctx, "sendMessage", form, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EngagementCount returns the view count of a previously sent message. An
// absent metric reads as zero.
func (c *Client) EngagementCount(ctx context.Context, channelID int64, messageID int64) (int, error) {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(channelID, 10))
	form.Set("message_id", strconv.FormatInt(messageID, 10))

	var stats struct {
		Views int `json:"views"`
	}
	if err := c.call(ctx, "getMessageViews", form, &stats); err != nil {
		return 0, err
	}
	return stats.Views, nil
}

// ResolveChannel turns a configured channel reference ("me", "@name", or a
// numeric identifier) into a chat identifier.
func (c *Client) ResolveChannel(ctx context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("empty channel reference")
	}

	if ref == "me" {
		var me struct {
			ID int64 `json:"id"`
		}
		if err := c.call(ctx, "getMe", url.Values{}, &me); err != nil {
			return 0, fmt.Errorf("resolve me: %w", err)
		}
		return me.ID, nil
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}

	form := url.Values{}
	form.Set("chat_id", ref)
	var chat struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, "getChat", form, &chat); err != nil {
		return 0, fmt.Errorf("resolve %q: %w", ref, err)
	}
	return chat.ID, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Parameters  *apiParameters  `json:"parameters"`
	Result      json.RawMessage `json:"result"`
}

type apiParameters struct {
	RetryAfter int `json:"retry_after"`
}

func (c *Client) call(ctx context.Context, method string, form url.Values, result any) error {
	if c.botToken == "" {
		return fmt.Errorf("telegram client misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var api apiResponse
	if err := json.Unmarshal(payload, &api); err != nil {
		return fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}

	if !api.OK {
		if api.ErrorCode == http.StatusTooManyRequests && api.Parameters != nil {
			return &ports.RateLimitError{
				RetryAfter: time.Duration(api.Parameters.RetryAfter) * time.Second,
			}
		}
		return fmt.Errorf("telegram error %d: %s", api.ErrorCode, api.Description)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(api.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
