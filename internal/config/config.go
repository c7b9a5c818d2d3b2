package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Web     WebConfig     `yaml:"web"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "genkit" или "genai"
	Model    string `yaml:"model"`
	ApiKey   string `yaml:"apiKey"`

	// Для genai провайдера: переопределение endpoint (тесты, прокси)
	BaseURL string `yaml:"baseUrl"`

	// Thinking budget for the audit call, 0 disables it
	ThinkingBudget int32 `yaml:"thinkingBudget"`
}

type WebConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" или "memory"
	DB     string `yaml:"db"`
	Prefix string `yaml:"prefix"`
}

type LogConfig struct {
	Level  string   `yaml:"level"`
	Writer []string `yaml:"writer"`
	File   string   `yaml:"file"`
}

const (
	ProviderGenkit = "genkit"
	ProviderGenai  = "genai"

	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Load reads .env (when present) and the process environment
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	thinkingBudget, err := strconv.ParseInt(getEnvOrDefault("LLM_THINKING_BUDGET", "12000"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("LLM_THINKING_BUDGET: %w", err)
	}

	cfg := &Config{
		LLM: LLMConfig{
			Provider:       getEnvOrDefault("LLM_PROVIDER", ProviderGenkit),
			Model:          getEnvOrDefault("LLM_MODEL", "gemini-2.5-flash"),
			ApiKey:         os.Getenv("API_KEY"),
			BaseURL:        os.Getenv("LLM_BASE_URL"),
			ThinkingBudget: int32(thinkingBudget),
		},
		Web: WebConfig{
			ListenAddr: getEnvOrDefault("WEB_LISTEN_ADDR", "127.0.0.1:8080"),
		},
		Storage: StorageConfig{
			Driver: getEnvOrDefault("STORAGE_DRIVER", StorageSQLite),
			DB:     getEnvOrDefault("STORAGE_DB", "history.db"),
			Prefix: getEnvOrDefault("STORAGE_PREFIX", "ssti_master_"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Writer: splitList(getEnvOrDefault("LOG_WRITERS", "console")),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and enumerations
func (c *Config) Validate() error {
	if c.LLM.ApiKey == "" {
		return errors.New("API_KEY environment variable is required but not set")
	}
	switch c.LLM.Provider {
	case ProviderGenkit, ProviderGenai:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGenkit, ProviderGenai, c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("LLM_MODEL must not be empty")
	}
	if c.LLM.ThinkingBudget < 0 {
		return errors.New("LLM_THINKING_BUDGET must not be negative")
	}
	switch c.Storage.Driver {
	case StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageSQLite, StorageMemory, c.Storage.Driver)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
