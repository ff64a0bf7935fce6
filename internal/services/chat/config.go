// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"
)

// ErrorNotice is the assistant message appended when a completion fails.
const ErrorNotice = "Sorry, I encountered an error while processing your request."

type Config struct {
	CompletionTimeout time.Duration // Bound for one completion exchange
	ErrorNotice       string        // Content of the synthetic failure reply
	CloseTimeout      time.Duration // Bound for flushing a session on shutdown
	IdleTimeout       time.Duration // SessionManager closes sessions unused this long; 0 keeps them
	LoadRetry         time.Duration // Wait before a degraded session's state is loaded again
}

func (c *Config) Validate() error {
	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("completion timeout must be positive")
	}
	if c.ErrorNotice == "" {
		return fmt.Errorf("error notice is required")
	}
	if c.CloseTimeout <= 0 {
		return fmt.Errorf("close timeout must be positive")
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout cannot be negative")
	}
	if c.LoadRetry <= 0 {
		return fmt.Errorf("load retry must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		CompletionTimeout: 60 * time.Second,
		ErrorNotice:       ErrorNotice,
		CloseTimeout:      15 * time.Second,
		IdleTimeout:       30 * time.Minute,
		LoadRetry:         30 * time.Second,
	}
}
