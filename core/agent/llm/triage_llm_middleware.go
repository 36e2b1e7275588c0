package llm

import (
	"context"
	"errors"
	"time"

	"triage_server/core/port/out"
	"triage_server/pkg/apperr"
	"triage_server/pkg/logger"
	"triage_server/pkg/metrics"
	"triage_server/pkg/resilience"
)

// BreakerCompleter fails fast while the provider keeps failing. Only
// transport errors count against the circuit. It never retries.
type BreakerCompleter struct {
	next    out.Completer
	breaker *resilience.Breaker
}

func NewBreakerCompleter(next out.Completer) *BreakerCompleter {
	cfg := resilience.DefaultBreakerConfig(next.Provider() + "-api")
	cfg.IsFailure = apperr.IsTransport
	cfg.OnStateChange = func(name, from, to string) {
		logger.WithFields(map[string]any{"breaker": name, "from": from, "to": to}).Warn("circuit breaker state changed")
	}
	return &BreakerCompleter{next: next, breaker: resilience.NewBreaker(cfg)}
}

func (b *BreakerCompleter) Provider() string { return b.next.Provider() }

// State returns the circuit state for readiness reports.
func (b *BreakerCompleter) State() string { return b.breaker.State() }

func (b *BreakerCompleter) Complete(ctx context.Context, req out.CompletionRequest) (*out.Completion, error) {
	res, err := resilience.Execute(b.breaker, func() (*out.Completion, error) {
		return b.next.Complete(ctx, req)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, apperr.ExternalError(b.Provider(), err)
	}
	return res, err
}

// InstrumentedCompleter records Prometheus metrics, latency windows and a
// structured log line per call.
type InstrumentedCompleter struct {
	next out.Completer
}

func NewInstrumentedCompleter(next out.Completer) *InstrumentedCompleter {
	return &InstrumentedCompleter{next: next}
}

func (c *InstrumentedCompleter) Provider() string { return c.next.Provider() }

func (c *InstrumentedCompleter) Complete(ctx context.Context, req out.CompletionRequest) (*out.Completion, error) {
	provider := c.Provider()
	start := time.Now()
	res, err := c.next.Complete(ctx, req)
	elapsed := time.Since(start)

	metrics.LLMDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	metrics.Latency.Record(provider, elapsed)

	log := logger.WithContext(ctx).WithDuration(elapsed).WithFields(map[string]any{
		"provider":   provider,
		"max_tokens": req.MaxTokens,
	})
	if err != nil {
		code := apperr.AsAppError(err).Code
		metrics.LLMRequests.WithLabelValues(provider, code).Inc()
		log.WithError(err).WithField("code", code).Warn("llm completion failed")
		return nil, err
	}

	metrics.LLMRequests.WithLabelValues(provider, "ok").Inc()
	if res.Usage != nil {
		metrics.LLMTokens.WithLabelValues(provider, "prompt").Add(float64(res.Usage.PromptTokens))
		metrics.LLMTokens.WithLabelValues(provider, "completion").Add(float64(res.Usage.CompletionTokens))
		log = log.WithField("total_tokens", res.Usage.TotalTokens)
	}
	log.Debug("llm completion")
	return res, nil
}
