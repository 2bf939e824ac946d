package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the prompt service
type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Pricing  PricingConfig
	Throttle ThrottleConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr string
}

// LLMConfig describes the chat-completion endpoint and default sampling settings
type LLMConfig struct {
	Provider    string
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// PricingConfig is the cost of one million tokens in USD
type PricingConfig struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// ThrottleConfig bounds how fast prompts are dispatched
type ThrottleConfig struct {
	MinDelay       time.Duration
	MaxConcurrency int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: GetStringEnv("SERVER_ADDR", ":8080"),
		},
		LLM: LLMConfig{
			Provider:    GetStringEnv("LLM_PROVIDER", "groq"),
			BaseURL:     GetStringEnv("LLM_BASE_URL", ""),
			Model:       GetStringEnv("LLM_MODEL", "llama3-8b-8192"),
			APIKey:      GetStringEnv("LLM_API_KEY", ""),
			Temperature: GetFloatEnv("LLM_TEMPERATURE", 0.7),
			MaxTokens:   GetIntEnv("LLM_MAX_TOKENS", 1000),
			Timeout:     GetDurationEnv("LLM_TIMEOUT", 60*time.Second),
		},
		Pricing: PricingConfig{
			InputPerMillion:  GetFloatEnv("PRICING_INPUT_PER_MILLION", 0.05),
			OutputPerMillion: GetFloatEnv("PRICING_OUTPUT_PER_MILLION", 0.08),
		},
		Throttle: ThrottleConfig{
			MinDelay:       GetDurationEnv("THROTTLE_MIN_DELAY", 500*time.Millisecond),
			MaxConcurrency: GetIntEnv("THROTTLE_MAX_CONCURRENCY", 2),
		},
		Storage: StorageConfig{
			DataDir: GetStringEnv("DATA_DIR", "./data"),
		},
		Log: LogConfig{
			Level:      GetStringEnv("LOG_LEVEL", "info"),
			File:       GetStringEnv("LOG_FILE", ""),
			MaxSizeMB:  GetIntEnv("LOG_MAX_SIZE", 100),
			MaxBackups: GetIntEnv("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: GetIntEnv("LOG_MAX_AGE", 28),
			Compress:   GetBoolEnv("LOG_COMPRESS", true),
		},
	}
}

// LoadDotEnv reads variables from .env files into the environment. Missing files are ignored;
// variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
