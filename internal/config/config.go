// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/repository/document"
	"github.com/iyunix/go-chatsync/internal/services/chat"
	"github.com/iyunix/go-chatsync/internal/services/completion"
	"github.com/iyunix/go-chatsync/internal/services/persistence"
)

type Config struct {
	ServerPort   string `yaml:"server_port"`
	Environment  string `yaml:"env"`
	LogLevel     string `yaml:"log_level"`
	JWTSecretKey string `yaml:"jwt_secret_key"`

	CompletionProvider string        `yaml:"completion_provider"`
	CompletionURL      string        `yaml:"completion_url"`
	CompletionTimeout  time.Duration `yaml:"completion_timeout"`
	OpenAIAPIKey       string        `yaml:"openai_api_key"`
	OpenAIBaseURL      string        `yaml:"openai_base_url"`
	OpenAIModelDefault string        `yaml:"openai_model_default"`
	OpenAIModelGPT4    string        `yaml:"openai_model_gpt4"`

	DocstoreDriver     string        `yaml:"docstore_driver"`
	DocstoreDSN        string        `yaml:"docstore_dsn"`
	DocstoreCollection string        `yaml:"docstore_collection"`
	DocstoreKeyPrefix  string        `yaml:"docstore_key_prefix"`
	DocstoreTimeout    time.Duration `yaml:"docstore_timeout"`
	DocstoreDebounce   time.Duration `yaml:"docstore_debounce"`
	RedisAddr          string        `yaml:"redis_addr"`
	RedisPassword      string        `yaml:"redis_password"`
	RedisDB            int           `yaml:"redis_db"`
	PebblePath         string        `yaml:"pebble_path"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
	SessionLoadRetry   time.Duration `yaml:"session_load_retry"`
}

// Load reads configuration from the environment or a .env file, then applies
// the YAML file named by CHATSYNC_CONFIG on top when set.
func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if !isProduction(env) {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := fromEnv()
	if path := os.Getenv("CHATSYNC_CONFIG"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	chatDefaults := chat.DefaultConfig()
	storeDefaults := persistence.DefaultConfig()
	completionDefaults := completion.DefaultConfig()

	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		Environment:  getEnv("ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),

		CompletionProvider: getEnv("COMPLETION_PROVIDER", completion.ProviderHTTP),
		CompletionURL:      getEnv("COMPLETION_URL", completionDefaults.URL),
		CompletionTimeout:  getEnvAsDuration("COMPLETION_TIMEOUT", chatDefaults.CompletionTimeout),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		OpenAIModelDefault: getEnv("OPENAI_MODEL_DEFAULT", completionDefaults.Models[domain.ModelShaktimaan]),
		OpenAIModelGPT4:    getEnv("OPENAI_MODEL_GPT4", completionDefaults.Models[domain.ModelGPT4]),

		DocstoreDriver:     getEnv("DOCSTORE_DRIVER", document.DriverSQLite),
		DocstoreDSN:        getEnv("DOCSTORE_DSN", ""),
		DocstoreCollection: getEnv("DOCSTORE_COLLECTION", "chats"),
		DocstoreKeyPrefix:  getEnv("DOCSTORE_KEY_PREFIX", storeDefaults.KeyPrefix),
		DocstoreTimeout:    getEnvAsDuration("DOCSTORE_TIMEOUT", storeDefaults.Timeout),
		DocstoreDebounce:   getEnvAsDuration("DOCSTORE_DEBOUNCE", storeDefaults.Debounce),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		PebblePath:         getEnv("PEBBLE_PATH", ""),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 5),

		SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", chatDefaults.IdleTimeout),
		SessionLoadRetry:   getEnvAsDuration("SESSION_LOAD_RETRY", chatDefaults.LoadRetry),
	}
}

func (c *Config) overlay(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if info.Mode().Perm()&0004 != 0 {
		log.Printf("WARNING: Config file %s is world-readable. Consider restricting permissions.", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// Validate reports settings that cannot work, and in production the
// secrets that must be present.
func (c *Config) Validate() error {
	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}
	if c.DocstoreTimeout <= 0 {
		return fmt.Errorf("DOCSTORE_TIMEOUT must be positive")
	}
	if c.DocstoreDebounce < 0 {
		return fmt.Errorf("DOCSTORE_DEBOUNCE cannot be negative")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if err := c.Completion().Validate(); err != nil {
		return err
	}
	if err := c.Chat().Validate(); err != nil {
		return fmt.Errorf("session settings: %w", err)
	}

	if c.IsProduction() {
		missing := []string{}
		if c.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if c.DocstoreDriver == document.DriverMemory {
			missing = append(missing, "DOCSTORE_DRIVER (memory is not durable)")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required production settings: %v", missing)
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

// Completion builds the completion client settings.
func (c *Config) Completion() *completion.Config {
	cfg := completion.DefaultConfig()
	cfg.Provider = strings.ToLower(c.CompletionProvider)
	cfg.URL = c.CompletionURL
	cfg.APIKey = c.OpenAIAPIKey
	cfg.BaseURL = c.OpenAIBaseURL
	cfg.Timeout = c.CompletionTimeout
	cfg.Models = map[domain.Model]string{
		domain.ModelShaktimaan: c.OpenAIModelDefault,
		domain.ModelGPT4:       c.OpenAIModelGPT4,
	}
	return cfg
}

func (c *Config) Chat() *chat.Config {
	cfg := chat.DefaultConfig()
	cfg.CompletionTimeout = c.CompletionTimeout
	cfg.IdleTimeout = c.SessionIdleTimeout
	cfg.LoadRetry = c.SessionLoadRetry
	return cfg
}

func (c *Config) Persistence() *persistence.Config {
	return &persistence.Config{
		KeyPrefix: c.DocstoreKeyPrefix,
		Timeout:   c.DocstoreTimeout,
		Debounce:  c.DocstoreDebounce,
	}
}

func (c *Config) Document() document.Options {
	return document.Options{
		Driver:        c.DocstoreDriver,
		DSN:           c.DocstoreDSN,
		Collection:    c.DocstoreCollection,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		PebblePath:    c.PebblePath,
	}
}

func isProduction(env string) bool {
	return strings.ToLower(env) == "production"
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as number. Using default value.", key)
		return defaultValue
	}
	return v
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
	return defaultValue
}
