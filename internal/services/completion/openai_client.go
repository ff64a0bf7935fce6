// File: internal/services/completion/openai_client.go
package completion

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// OpenAIClient sends the thread history to an OpenAI-compatible chat
// completion endpoint.
type OpenAIClient struct {
	config *Config
	client *openai.Client
	logger Logger
}

func NewOpenAIClient(config *Config, logger Logger) *OpenAIClient {
	llmConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		llmConfig.BaseURL = config.BaseURL
	}
	return &OpenAIClient{
		config: config,
		client: openai.NewClientWithConfig(llmConfig),
		logger: logger,
	}
}

func (p *OpenAIClient) Complete(ctx context.Context, req Request) (domain.Message, error) {
	if strings.TrimSpace(req.Message) == "" {
		return domain.Message{}, NewValidationError("message is empty")
	}

	model := p.config.ModelFor(req.Model)
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    chatMessages(req),
		Temperature: p.config.Temperature,
	})
	if err != nil {
		return domain.Message{}, classify(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return domain.Message{}, NewProviderError(0, "empty completion response", nil)
	}
	if p.logger != nil {
		p.logger.Debug("completion received", "model", model, "id", resp.ID)
	}

	return domain.Message{
		ID:      resp.ID,
		Role:    domain.RoleAssistant,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// chatMessages converts the history into provider messages. The history
// already ends with the user's message; it is only appended when missing.
func chatMessages(req Request) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	n := len(req.History)
	if n == 0 || req.History[n-1].Role != domain.RoleUser || req.History[n-1].Content != req.Message {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})
	}
	return out
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return NewRateLimitError(apiErr.Message)
		}
		return NewProviderError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(reqErr.HTTPStatusCode, "request rejected", err)
	}
	return NewNetworkError("failed to create completion", err)
}
