package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prompt construction
	PromptsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinikai_prompts_generated_total",
			Help: "Total number of prompts built by the dynamic prompt engine",
		},
		[]string{"category"},
	)

	AdvisoriesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinikai_advisories_applied_total",
			Help: "Advisory clauses appended to generated prompts",
		},
		[]string{"rule"},
	)

	// Dispatch
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinikai_llm_requests_total",
			Help: "Total number of completion requests",
		},
		[]string{"provider", "mode", "status"},
	)

	LLMTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinikai_llm_tokens_total",
			Help: "Total number of tokens consumed",
		},
		[]string{"provider", "model", "type"}, // type: prompt/completion
	)

	LLMCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinikai_llm_cost_usd_total",
			Help: "Total completion cost in USD",
		},
		[]string{"provider", "model"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "klinikai_llm_request_duration_seconds",
			Help:    "Completion request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"provider", "model"},
	)
)
