package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMissingAPIKey is returned by providers that need a key when none is configured
var ErrMissingAPIKey = errors.New("missing API key")

// LLMProvider defines the interface for chat-completion dispatch
type LLMProvider interface {
	Generate(ctx context.Context, prompt string, opts Options) (*Completion, error)
	Name() string
}

// Options are the sampling parameters sent with a request
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string
}

// Usage is the token accounting reported by the endpoint
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the text returned for a prompt
type Completion struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// StatusError is returned when the endpoint answers with a non-2xx status
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func statusError(provider string, resp *http.Response, message string) *StatusError {
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// New builds the provider named by kind. Unknown kinds get the OpenAI-compatible client, which
// covers Groq and OpenAI.
func New(kind, baseURL, model, apiKey string, client *http.Client) LLMProvider {
	switch kind {
	case "ollama":
		p := NewOllamaProvider(baseURL, model)
		p.Client = client
		return p
	case "openai":
		if baseURL == "" {
			baseURL = OpenAIURL
		}
	}
	p := NewOpenAIProvider(baseURL, model, apiKey)
	p.Client = client
	if kind != "" {
		p.Label = kind
	}
	return p
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
