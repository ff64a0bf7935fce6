// File: internal/services/persistence/config.go
package persistence

import (
	"fmt"
	"time"
)

type Config struct {
	KeyPrefix string        // Prepended to the session key, e.g. "chat-state:"
	Timeout   time.Duration // Bound for each load or save
	Debounce  time.Duration // Quiet period before a scheduled write is issued
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce cannot be negative")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		KeyPrefix: "chat-state:",
		Timeout:   10 * time.Second,
		Debounce:  300 * time.Millisecond,
	}
}

// DocumentKey builds the store key for a session key.
func (c *Config) DocumentKey(sessionKey string) string {
	return c.KeyPrefix + sessionKey
}
