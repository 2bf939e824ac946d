package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	GroqURL   = "https://api.groq.com/openai/v1/chat/completions"
	OpenAIURL = "https://api.openai.com/v1/chat/completions"
)

// OpenAIProvider talks to any OpenAI-compatible chat-completions endpoint
type OpenAIProvider struct {
	BaseURL string
	Model   string
	APIKey  string
	Label   string
	Client  *http.Client
}

func NewOpenAIProvider(baseURL, model, apiKey string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = GroqURL
	}
	return &OpenAIProvider{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		Label:   "openai",
	}
}

func (p *OpenAIProvider) Name() string {
	return p.Label
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	apiKey := p.APIKey
	if opts.APIKey != "" {
		apiKey = opts.APIKey
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := p.Model
	if opts.Model != "" {
		model = opts.Model
	}

	payload := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.BaseURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpClient(p.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr chatError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &apiErr)
		return nil, statusError(p.Name(), resp, apiErr.Error.Message)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p.Name(), err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from %s", p.Name())
	}

	if result.Model == "" {
		result.Model = model
	}

	return &Completion{
		Content: result.Choices[0].Message.Content,
		Model:   result.Model,
		Usage:   result.Usage,
	}, nil
}
