// Package usage keeps running token and cost totals for dispatched prompts.
//
// Cost = prompt_tokens * input_rate + completion_tokens * output_rate, with rates in USD per
// million tokens.
package usage

import (
	"sync"
	"time"

	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/provider"
)

// Pricing is the USD cost of one million tokens
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// Cost returns the USD cost of a single request's usage
func (p Pricing) Cost(u provider.Usage) float64 {
	return float64(u.PromptTokens)*p.InputPerMillion/1e6 +
		float64(u.CompletionTokens)*p.OutputPerMillion/1e6
}

// Entry is one recorded request
type Entry struct {
	Model     string         `json:"model"`
	Usage     provider.Usage `json:"usage"`
	CostUSD   float64        `json:"cost_usd"`
	Timestamp time.Time      `json:"timestamp"`
}

// Stats are the running totals since the last reset
type Stats struct {
	Requests         int64     `json:"requests"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	LastRequest      time.Time `json:"last_request,omitempty"`
	Since            time.Time `json:"since"`
}

// Tracker accumulates Stats. It is safe for concurrent use.
type Tracker struct {
	pricing Pricing
	now     func() time.Time

	mu    sync.RWMutex
	stats Stats
}

func NewTracker(pricing Pricing) *Tracker {
	t := &Tracker{
		pricing: pricing,
		now:     time.Now,
	}
	t.stats.Since = t.now()
	return t
}

func (t *Tracker) Pricing() Pricing {
	return t.pricing
}

// Record adds one request's usage to the totals. A missing total is derived from its parts.
func (t *Tracker) Record(model string, u provider.Usage) Entry {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}

	entry := Entry{
		Model:     model,
		Usage:     u,
		CostUSD:   t.pricing.Cost(u),
		Timestamp: t.now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Requests++
	t.stats.PromptTokens += int64(u.PromptTokens)
	t.stats.CompletionTokens += int64(u.CompletionTokens)
	t.stats.TotalTokens += int64(u.TotalTokens)
	t.stats.CostUSD += entry.CostUSD
	t.stats.LastRequest = entry.Timestamp

	return entry
}

// Snapshot returns a copy of the totals
func (t *Tracker) Snapshot() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// Reset zeroes the totals
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = Stats{Since: t.now()}
}

// Restore replaces the totals, e.g. with counters loaded from storage
func (t *Tracker) Restore(s Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.Since.IsZero() {
		s.Since = t.now()
	}
	t.stats = s
}
