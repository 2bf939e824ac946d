package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	clearEnvVars()

	cfg := config.Load()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "", cfg.LLM.BaseURL)
	assert.Equal(t, "llama3-8b-8192", cfg.LLM.Model)
	assert.Equal(t, "", cfg.LLM.APIKey)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)

	assert.Equal(t, 0.05, cfg.Pricing.InputPerMillion)
	assert.Equal(t, 0.08, cfg.Pricing.OutputPerMillion)

	assert.Equal(t, 500*time.Millisecond, cfg.Throttle.MinDelay)
	assert.Equal(t, 2, cfg.Throttle.MaxConcurrency)

	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.Log.File)
	assert.True(t, cfg.Log.Compress)
}

func TestLoadConfigFromEnv(t *testing.T) {
	envVars := map[string]string{
		"SERVER_ADDR":                ":9090",
		"LLM_PROVIDER":               "ollama",
		"LLM_BASE_URL":               "http://localhost:11434/api/generate",
		"LLM_MODEL":                  "llama3",
		"LLM_API_KEY":                "gsk-test",
		"LLM_TEMPERATURE":            "0.2",
		"LLM_MAX_TOKENS":             "256",
		"LLM_TIMEOUT":                "5s",
		"PRICING_INPUT_PER_MILLION":  "1.5",
		"PRICING_OUTPUT_PER_MILLION": "2",
		"THROTTLE_MIN_DELAY":         "0s",
		"THROTTLE_MAX_CONCURRENCY":   "8",
		"DATA_DIR":                   "/tmp/klinikai",
		"LOG_LEVEL":                  "debug",
		"LOG_FILE":                   "/tmp/klinikai.log",
		"LOG_COMPRESS":               "false",
	}

	for key, value := range envVars {
		os.Setenv(key, value)
	}
	defer clearEnvVars()

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434/api/generate", cfg.LLM.BaseURL)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 256, cfg.LLM.MaxTokens)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 1.5, cfg.Pricing.InputPerMillion)
	assert.Equal(t, 2.0, cfg.Pricing.OutputPerMillion)
	assert.Equal(t, time.Duration(0), cfg.Throttle.MinDelay)
	assert.Equal(t, 8, cfg.Throttle.MaxConcurrency)
	assert.Equal(t, "/tmp/klinikai", cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/klinikai.log", cfg.Log.File)
	assert.False(t, cfg.Log.Compress)
}

func TestGetStringEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue string
		expected     string
	}{
		{"Existing env var", "TEST_STRING", "test_value", "default", "test_value"},
		{"Non-existing env var", "NON_EXISTENT", "", "default", "default"},
		{"Empty env var", "EMPTY_VAR", "", "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(tt.key)

			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := config.GetStringEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetIntEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue int
		expected     int
	}{
		{"Valid int", "TEST_INT", "42", 10, 42},
		{"Invalid int", "TEST_INT_INVALID", "not_a_number", 10, 10},
		{"Negative int", "TEST_INT_NEG", "-5", 10, -5},
		{"Zero", "TEST_INT_ZERO", "0", 10, 0},
		{"Non-existing env var", "NON_EXISTENT", "", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(tt.key)

			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := config.GetIntEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetFloatEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue float64
		expected     float64
	}{
		{"Valid float", "TEST_FLOAT", "0.35", 1, 0.35},
		{"Integer text", "TEST_FLOAT", "2", 1, 2},
		{"Invalid float", "TEST_FLOAT", "warm", 0.7, 0.7},
		{"Non-existing env var", "NON_EXISTENT", "", 0.7, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(tt.key)

			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			assert.Equal(t, tt.expected, config.GetFloatEnv(tt.key, tt.defaultValue))
		})
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{"True string", "TEST_BOOL", "true", false, true},
		{"False string", "TEST_BOOL", "false", true, false},
		{"1 (true)", "TEST_BOOL", "1", false, true},
		{"0 (false)", "TEST_BOOL", "0", true, false},
		{"Invalid bool", "TEST_BOOL", "invalid", true, true},
		{"Non-existing env var", "NON_EXISTENT", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(tt.key)

			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := config.GetBoolEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetDurationEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue time.Duration
		expected     time.Duration
	}{
		{"Valid duration - seconds", "TEST_DURATION", "5s", 1 * time.Second, 5 * time.Second},
		{"Valid duration - minutes", "TEST_DURATION", "10m", 1 * time.Second, 10 * time.Minute},
		{"Valid duration - combined", "TEST_DURATION", "1h30m", 1 * time.Second, 90 * time.Minute},
		{"Invalid duration", "TEST_DURATION", "invalid", 5 * time.Second, 5 * time.Second},
		{"Non-existing env var", "NON_EXISTENT", "", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(tt.key)

			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := config.GetDurationEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LLM_MODEL=from-dotenv\nLLM_MAX_TOKENS=64\n"), 0644))

	os.Setenv("LLM_MAX_TOKENS", "32")

	require.NoError(t, config.LoadDotEnv(path))
	cfg := config.Load()

	assert.Equal(t, "from-dotenv", cfg.LLM.Model)
	assert.Equal(t, 32, cfg.LLM.MaxTokens, "existing variables win over .env")
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

// Helper function to clear environment variables used in tests
func clearEnvVars() {
	envKeys := []string{
		"SERVER_ADDR",
		"LLM_PROVIDER",
		"LLM_BASE_URL",
		"LLM_MODEL",
		"LLM_API_KEY",
		"LLM_TEMPERATURE",
		"LLM_MAX_TOKENS",
		"LLM_TIMEOUT",
		"PRICING_INPUT_PER_MILLION",
		"PRICING_OUTPUT_PER_MILLION",
		"THROTTLE_MIN_DELAY",
		"THROTTLE_MAX_CONCURRENCY",
		"DATA_DIR",
		"LOG_LEVEL",
		"LOG_FILE",
		"LOG_COMPRESS",
		"TEST_STRING",
		"TEST_INT",
		"TEST_INT_INVALID",
		"TEST_INT_NEG",
		"TEST_INT_ZERO",
		"TEST_FLOAT",
		"TEST_BOOL",
		"TEST_DURATION",
		"EMPTY_VAR",
	}

	for _, key := range envKeys {
		os.Unsetenv(key)
	}
}
