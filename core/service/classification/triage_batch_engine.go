package classification

import (
	"context"

	"triage_server/core/agent/llm"
	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/apperr"
	"triage_server/pkg/logger"
	"triage_server/pkg/metrics"
)

const DefaultMaxBatchSize = 10

// Options controls one classification call.
type Options = domain.ClassifyOptions

// DefaultOptions returns batch size 10, strict labels and batch isolation.
func DefaultOptions() Options {
	return Options{
		MaxBatchSize:       DefaultMaxBatchSize,
		StrictLabels:       true,
		IsolateBatchErrors: true,
	}
}

// Engine runs the batch classification protocol against a Completer. It holds
// no per-call state and is safe for concurrent use.
type Engine struct {
	completer out.Completer
	defaults  Options
}

func NewEngine(completer out.Completer, defaults Options) *Engine {
	if defaults.MaxBatchSize < 1 {
		defaults.MaxBatchSize = DefaultMaxBatchSize
	}
	return &Engine{completer: completer, defaults: defaults}
}

// Options returns the engine defaults; callers override fields per request.
func (e *Engine) Options() Options { return e.defaults }

// Classify splits text into messages and returns one result per non-empty
// message, in input order.
func (e *Engine) Classify(ctx context.Context, text string, opts Options) (*domain.Classification, error) {
	if opts.MaxBatchSize < 1 {
		opts.MaxBatchSize = DefaultMaxBatchSize
	}

	messages := domain.SplitMessages(text)
	if len(messages) == 0 {
		return nil, apperr.BadRequest("empty text")
	}

	var (
		result *domain.Classification
		err    error
	)
	if len(messages) == 1 {
		result, err = e.classifySingle(ctx, messages[0], opts)
	} else {
		result, err = e.classifyBatches(ctx, messages, opts)
	}
	if err != nil {
		return nil, err
	}

	for _, r := range result.Results {
		metrics.ClassifiedMessages.WithLabelValues(string(r.Label)).Inc()
	}
	return result, nil
}

func (e *Engine) classifySingle(ctx context.Context, message string, opts Options) (*domain.Classification, error) {
	res, err := e.completer.Complete(ctx, llm.SingleClassifyRequest(message))
	if err != nil {
		return nil, err
	}

	meta := domain.AggregateMeta{
		Source:   e.completer.Provider(),
		Provider: e.completer.Provider(),
		Model:    res.Model,
		Batches: []domain.BatchOutcome{{
			Index: 0,
			Size:  1,
			Raw:   res.Content,
			Usage: res.Usage,
		}},
	}

	parsed := llm.ExtractJSON(res.Content, llm.ShapeObject)
	if parsed.Kind == llm.Object {
		meta.Batches[0].Status = domain.BatchStatusOK
		return &domain.Classification{
			Results: []domain.ClassificationResult{coerceItem(parsed.Object, opts.StrictLabels)},
			Meta:    meta,
		}, nil
	}

	h := ClassifyHeuristic(message)
	meta.Fallback = domain.FallbackHeuristicSingle
	meta.HeuristicDetails = &h
	meta.Batches[0].Status = domain.BatchStatusHeuristicFallback
	logger.WithContext(ctx).WithField("raw_len", len(res.Content)).Warn("single classification unparseable, using heuristic")

	return &domain.Classification{
		Results: []domain.ClassificationResult{h},
		Meta:    meta,
	}, nil
}

func (e *Engine) classifyBatches(ctx context.Context, messages []string, opts Options) (*domain.Classification, error) {
	agg := &domain.Classification{
		Results:  make([]domain.ClassificationResult, 0, len(messages)),
		Multiple: true,
		Meta: domain.AggregateMeta{
			Provider: e.completer.Provider(),
			Batches:  make([]domain.BatchOutcome, 0, (len(messages)+opts.MaxBatchSize-1)/opts.MaxBatchSize),
		},
	}

	usedModel := false
	for start, index := 0, 0; start < len(messages); start, index = start+opts.MaxBatchSize, index+1 {
		end := min(start+opts.MaxBatchSize, len(messages))
		batch := messages[start:end]

		results, outcome, modelUsed, err := e.classifyBatch(ctx, batch, opts)
		if err != nil {
			return nil, err
		}
		outcome.Index = index
		if outcome.Usage != nil && agg.Meta.Model == "" {
			agg.Meta.Model = outcome.model
		}
		usedModel = usedModel || modelUsed

		agg.Results = append(agg.Results, results...)
		agg.Meta.Batches = append(agg.Meta.Batches, outcome.BatchOutcome)
		metrics.Batches.WithLabelValues(string(outcome.Status)).Inc()

		logger.WithContext(ctx).WithFields(map[string]any{
			"batch":  index,
			"size":   len(batch),
			"status": outcome.Status,
		}).Debug("batch classified")
	}

	agg.Meta.Source = domain.SourceFallback
	if usedModel {
		agg.Meta.Source = e.completer.Provider()
	}
	return agg, nil
}

type batchOutcome struct {
	domain.BatchOutcome
	model string
}

// classifyBatch resolves one batch: request, validate, one repair attempt,
// then per-slot heuristic fill. The returned slice always has len(batch)
// entries.
func (e *Engine) classifyBatch(ctx context.Context, batch []string, opts Options) ([]domain.ClassificationResult, batchOutcome, bool, error) {
	outcome := batchOutcome{BatchOutcome: domain.BatchOutcome{Size: len(batch)}}

	res, err := e.completer.Complete(ctx, llm.BatchClassifyRequest(batch))
	if err != nil {
		if !opts.IsolateBatchErrors || !apperr.IsTransport(err) || ctx.Err() != nil {
			return nil, outcome, false, err
		}
		logger.WithContext(ctx).WithError(err).WithField("size", len(batch)).Warn("batch request failed, filling with heuristic")
		outcome.Status = domain.BatchStatusHeuristicFallback
		outcome.Error = err.Error()
		return heuristicAll(batch), outcome, false, nil
	}
	outcome.Raw = res.Content
	outcome.Usage = res.Usage
	outcome.model = res.Model

	first := llm.ExtractJSON(res.Content, llm.ShapeArray)
	if first.Kind == llm.Array && len(first.Array) == len(batch) {
		outcome.Status = domain.BatchStatusOK
		return normalizeExact(first.Array, batch, opts.StrictLabels), outcome, true, nil
	}

	repair, err := e.completer.Complete(ctx, llm.RepairRequest())
	if err != nil {
		logger.WithContext(ctx).WithError(err).Debug("repair request failed")
	} else {
		outcome.ReformatRaw = repair.Content
		outcome.ReformatUsage = repair.Usage
		second := llm.ExtractJSON(repair.Content, llm.ShapeArray)
		if second.Kind == llm.Array && len(second.Array) == len(batch) {
			outcome.Status = domain.BatchStatusReformattedOK
			return normalizeExact(second.Array, batch, opts.StrictLabels), outcome, true, nil
		}
	}

	outcome.Status = domain.BatchStatusHeuristicFallback
	if first.Kind != llm.Array {
		return heuristicAll(batch), outcome, false, nil
	}
	return fillSlots(first.Array, batch, opts.StrictLabels), outcome, true, nil
}

// normalizeExact maps a parse whose length matches the batch. Non-object
// items fall back to the heuristic on the message at that position.
func normalizeExact(items []any, batch []string, strict bool) []domain.ClassificationResult {
	results := make([]domain.ClassificationResult, len(batch))
	for i, item := range items {
		if obj, ok := item.(map[string]any); ok {
			results[i] = coerceItem(obj, strict)
		} else {
			results[i] = ClassifyHeuristic(batch[i])
		}
	}
	return results
}

// fillSlots resolves each position against a parse of the wrong length.
func fillSlots(items []any, batch []string, strict bool) []domain.ClassificationResult {
	results := make([]domain.ClassificationResult, len(batch))
	for i := range batch {
		if i >= len(items) {
			results[i] = ClassifyHeuristic(batch[i])
			continue
		}
		if obj, ok := items[i].(map[string]any); ok {
			results[i] = coerceItem(obj, strict)
		} else {
			results[i] = ClassifyHeuristic(stringify(items[i]))
		}
	}
	return results
}

func heuristicAll(batch []string) []domain.ClassificationResult {
	results := make([]domain.ClassificationResult, len(batch))
	for i, msg := range batch {
		results[i] = ClassifyHeuristic(msg)
	}
	return results
}
