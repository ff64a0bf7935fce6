// File: internal/services/completion/config.go
package completion

import (
	"fmt"
	"time"

	"github.com/iyunix/go-chatsync/internal/domain"
)

const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

type Config struct {
	Provider string

	// HTTP JSON endpoint
	URL string

	// OpenAI-compatible endpoint
	APIKey  string
	BaseURL string
	Models  map[domain.Model]string

	Timeout     time.Duration
	Temperature float32
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderHTTP:
		if c.URL == "" {
			return fmt.Errorf("COMPLETION_URL is required for the http provider")
		}
	case ProviderOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown completion provider %q", c.Provider)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// ModelFor maps a thread model onto the provider's model name. Unmapped
// models are passed through unchanged.
func (c *Config) ModelFor(m domain.Model) string {
	if name, ok := c.Models[m]; ok && name != "" {
		return name
	}
	return string(m)
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderHTTP,
		URL:      "http://localhost:5000/chat",
		Models: map[domain.Model]string{
			domain.ModelShaktimaan: "gpt-4o-mini",
			domain.ModelGPT4:       "gpt-4",
		},
		Timeout:     60 * time.Second,
		Temperature: 0.7,
	}
}

// New builds the client selected by config.Provider.
func New(config *Config, logger Logger) (Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config, logger), nil
	default:
		return NewHTTPClient(config, nil, logger), nil
	}
}
