package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/config"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/metrics"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/prompting"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/provider"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/storage"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/throttle"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/usage"
)

const (
	settingsKey = "settings"
	usageKey    = "usage"

	MaxTemperature = 2.0
)

var (
	ErrEmptyPrompt        = errors.New("please enter a prompt")
	ErrInvalidTemperature = fmt.Errorf("temperature must be between 0 and %.0f", MaxTemperature)
	ErrInvalidMaxTokens   = errors.New("max tokens must be positive")
)

// Mode tells how a dispatched prompt was produced
type Mode string

const (
	ZeroShot  Mode = "zero-shot"
	MultiShot Mode = "multi-shot"
	Dynamic   Mode = "dynamic"
)

// Settings are the operator-tunable dispatch parameters, persisted between runs
type Settings struct {
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// SettingsUpdate changes the fields that are non-nil
type SettingsUpdate struct {
	APIKey      *string
	Model       *string
	Temperature *float64
	MaxTokens   *int
}

// Result is the outcome of one dispatched prompt
type Result struct {
	ID       string         `json:"id"`
	Mode     Mode           `json:"mode"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Content  string         `json:"content"`
	Usage    provider.Usage `json:"usage"`
	CostUSD  float64        `json:"cost_usd"`
	Totals   usage.Stats    `json:"totals"`
	Latency  time.Duration  `json:"latency_ns"`
}

// Engine ties prompt construction to dispatch, usage accounting and persisted settings
type Engine struct {
	Config   *config.Config
	Logger   *logrus.Entry
	Prompts  *prompting.Session
	LLM      provider.LLMProvider
	Usage    *usage.Tracker
	Throttle *throttle.Throttle
	Storage  storage.DocumentStore

	mu       sync.RWMutex
	settings Settings

	Stats EngineStats
}

type EngineStats struct {
	StartTime time.Time
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, store storage.DocumentStore) (*Engine, error) {
	client := &http.Client{Timeout: cfg.LLM.Timeout}
	llm := provider.New(cfg.LLM.Provider, cfg.LLM.BaseURL, cfg.LLM.Model, "", client)

	e := &Engine{
		Config:   cfg,
		Logger:   logger,
		Prompts:  prompting.NewSession(prompting.NewGenerator()),
		LLM:      llm,
		Usage:    usage.NewTracker(usage.Pricing{InputPerMillion: cfg.Pricing.InputPerMillion, OutputPerMillion: cfg.Pricing.OutputPerMillion}),
		Throttle: throttle.New(cfg.Throttle, logger),
		Storage:  store,
		settings: Settings{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
		Stats: EngineStats{StartTime: time.Now()},
	}

	if err := e.restore(); err != nil {
		return nil, err
	}

	return e, nil
}

// restore loads persisted settings and usage counters; missing documents keep the defaults
func (e *Engine) restore() error {
	if e.Storage == nil {
		return nil
	}

	var saved Settings
	switch err := e.Storage.Load(settingsKey, &saved); {
	case err == nil:
		if saved.APIKey != "" {
			e.settings.APIKey = saved.APIKey
		}
		if saved.Model != "" {
			e.settings.Model = saved.Model
		}
		if validTemperature(saved.Temperature) {
			e.settings.Temperature = saved.Temperature
		}
		if saved.MaxTokens > 0 {
			e.settings.MaxTokens = saved.MaxTokens
		}
		e.Logger.Info("Restored saved settings")
	case errors.Is(err, storage.ErrNotFound):
	default:
		return fmt.Errorf("failed to load settings: %w", err)
	}

	var stats usage.Stats
	switch err := e.Storage.Load(usageKey, &stats); {
	case err == nil:
		e.Usage.Restore(stats)
		e.Logger.WithField("requests", stats.Requests).Info("Restored usage statistics")
	case errors.Is(err, storage.ErrNotFound):
	default:
		return fmt.Errorf("failed to load usage: %w", err)
	}

	return nil
}

// Settings returns the current dispatch settings
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// UpdateSettings validates and applies an update, then persists the result
func (e *Engine) UpdateSettings(u SettingsUpdate) (Settings, error) {
	if u.Temperature != nil && !validTemperature(*u.Temperature) {
		return e.Settings(), ErrInvalidTemperature
	}
	if u.MaxTokens != nil && *u.MaxTokens <= 0 {
		return e.Settings(), ErrInvalidMaxTokens
	}

	e.mu.Lock()
	if u.APIKey != nil {
		e.settings.APIKey = strings.TrimSpace(*u.APIKey)
	}
	if u.Model != nil && *u.Model != "" {
		e.settings.Model = *u.Model
	}
	if u.Temperature != nil {
		e.settings.Temperature = *u.Temperature
	}
	if u.MaxTokens != nil {
		e.settings.MaxTokens = *u.MaxTokens
	}
	current := e.settings
	e.mu.Unlock()

	if e.Storage != nil {
		if err := e.Storage.Save(settingsKey, current); err != nil {
			return current, fmt.Errorf("failed to save settings: %w", err)
		}
	}

	e.Logger.WithFields(logrus.Fields{
		"model":       current.Model,
		"temperature": current.Temperature,
		"max_tokens":  current.MaxTokens,
		"api_key_set": current.APIKey != "",
	}).Info("Settings updated")

	return current, nil
}

func validTemperature(t float64) bool {
	return t >= 0 && t <= MaxTemperature
}

// Send dispatches prompt to the completion endpoint and records its usage
func (e *Engine) Send(ctx context.Context, mode Mode, prompt string) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	settings := e.Settings()
	log := e.Logger.WithFields(logrus.Fields{
		"mode":     mode,
		"provider": e.LLM.Name(),
		"model":    settings.Model,
	})

	release, err := e.Throttle.Acquire(ctx)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(e.LLM.Name(), string(mode), "throttled").Inc()
		return nil, fmt.Errorf("dispatch cancelled: %w", err)
	}
	defer release()

	start := time.Now()
	completion, err := e.LLM.Generate(ctx, prompt, provider.Options{
		Model:       settings.Model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
		APIKey:      settings.APIKey,
	})
	latency := time.Since(start)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(e.LLM.Name(), string(mode), "error").Inc()
		log.WithError(err).Error("Completion request failed")
		return nil, err
	}

	entry := e.Usage.Record(completion.Model, completion.Usage)
	totals := e.Usage.Snapshot()

	metrics.LLMRequestsTotal.WithLabelValues(e.LLM.Name(), string(mode), "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(e.LLM.Name(), completion.Model).Observe(latency.Seconds())
	metrics.LLMTokensUsed.WithLabelValues(e.LLM.Name(), completion.Model, "prompt").Add(float64(entry.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(e.LLM.Name(), completion.Model, "completion").Add(float64(entry.Usage.CompletionTokens))
	metrics.LLMCostUSD.WithLabelValues(e.LLM.Name(), completion.Model).Add(entry.CostUSD)

	e.saveUsage(totals)

	log.WithFields(logrus.Fields{
		"total_tokens": entry.Usage.TotalTokens,
		"cost_usd":     entry.CostUSD,
		"latency":      latency.String(),
	}).Info("Completion received")

	return &Result{
		ID:       uuid.NewString(),
		Mode:     mode,
		Provider: e.LLM.Name(),
		Model:    completion.Model,
		Content:  completion.Content,
		Usage:    entry.Usage,
		CostUSD:  entry.CostUSD,
		Totals:   totals,
		Latency:  latency,
	}, nil
}

// UsageStats returns the running totals
func (e *Engine) UsageStats() usage.Stats {
	return e.Usage.Snapshot()
}

// ResetUsage zeroes the running totals and the persisted copy
func (e *Engine) ResetUsage() error {
	e.Usage.Reset()
	if e.Storage == nil {
		return nil
	}
	if err := e.Storage.Delete(usageKey); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}
	e.Logger.Info("Usage statistics reset")
	return nil
}

// saveUsage persists totals. Failures are logged; the completion has already been delivered.
func (e *Engine) saveUsage(totals usage.Stats) {
	if e.Storage == nil {
		return
	}
	if err := e.Storage.Save(usageKey, totals); err != nil {
		e.Logger.WithError(err).Error("Failed to save usage statistics")
	}
}

// GenerateDynamicPrompt builds a prompt from the session context
func (e *Engine) GenerateDynamicPrompt(category prompting.Category, input string, ctx prompting.Context) prompting.Prompt {
	return e.observe(e.Prompts.GenerateDynamicPrompt(category, input, ctx))
}

// GenerateMedicalAssessment builds a symptom or diagnosis prompt from the session context
func (e *Engine) GenerateMedicalAssessment(symptoms string, ctx prompting.Context) prompting.Prompt {
	return e.observe(e.Prompts.GenerateMedicalAssessment(symptoms, ctx))
}

// GenerateTreatmentRecommendation builds a treatment prompt from the session context
func (e *Engine) GenerateTreatmentRecommendation(diagnosis string, ctx prompting.Context) prompting.Prompt {
	return e.observe(e.Prompts.GenerateTreatmentRecommendation(diagnosis, ctx))
}

func (e *Engine) observe(p prompting.Prompt) prompting.Prompt {
	metrics.PromptsGenerated.WithLabelValues(string(p.Category)).Inc()
	for _, rule := range p.Advisories {
		metrics.AdvisoriesApplied.WithLabelValues(rule).Inc()
	}
	e.Logger.WithFields(logrus.Fields{
		"category":   p.Category,
		"advisories": p.Advisories,
	}).Debug("Prompt generated")
	return p
}
