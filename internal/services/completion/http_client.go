// File: internal/services/completion/http_client.go
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/iyunix/go-chatsync/internal/domain"
)

const maxErrorBody = 4 << 10

// HTTPClient talks to a JSON endpoint that accepts {message, history} and
// answers with a single message object.
type HTTPClient struct {
	url    string
	client *http.Client
	logger Logger
}

// NewHTTPClient builds a client for config.URL. A nil httpClient gets one
// bounded by config.Timeout.
func NewHTTPClient(config *Config, httpClient *http.Client, logger Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &HTTPClient{url: config.URL, client: httpClient, logger: logger}
}

func (c *HTTPClient) Complete(ctx context.Context, req Request) (domain.Message, error) {
	if strings.TrimSpace(req.Message) == "" {
		return domain.Message{}, NewValidationError("message is empty")
	}
	if req.History == nil {
		req.History = []domain.Message{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.Message{}, &CompletionError{Type: ErrTypeValidation, Message: "invalid payload", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Message{}, NewNetworkError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domain.Message{}, NewNetworkError("request failed", err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp)
}

func (c *HTTPClient) handleResponse(resp *http.Response) (domain.Message, error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.Message{}, NewRateLimitError("rate limit exceeded")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(responseBody))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return domain.Message{}, NewProviderError(resp.StatusCode, msg, nil)
	}

	var msg domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return domain.Message{}, NewDecodeError("invalid response body", err)
	}
	if c.logger != nil {
		c.logger.Debug("completion received", "status", resp.StatusCode, "content_length", len(msg.Content))
	}
	return msg, nil
}
