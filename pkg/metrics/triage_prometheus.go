package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triage",
		Name:      "llm_requests_total",
		Help:      "Remote completion calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	LLMDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "triage",
		Name:      "llm_request_duration_seconds",
		Help:      "Remote completion latency.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
	}, []string{"provider"})

	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triage",
		Name:      "llm_tokens_total",
		Help:      "Tokens reported by the provider.",
	}, []string{"provider", "kind"})

	Batches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triage",
		Name:      "batches_total",
		Help:      "Classification batches by resolution status.",
	}, []string{"status"})

	ClassifiedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triage",
		Name:      "classified_messages_total",
		Help:      "Classified messages by label.",
	}, []string{"label"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triage",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})
)

// Latency holds the per-provider sliding windows shown on /ready.
var Latency = NewLatencyRegistry(1000)
