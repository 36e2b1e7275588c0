package domain

import "strings"

// Label is the three-way classification outcome for a message.
type Label string

const (
	LabelProdutivo   Label = "produtivo"   // actionable / productive
	LabelImprodutivo Label = "improdutivo" // unproductive, spam-like
	LabelNeutro      Label = "neutro"      // neutral or undetermined
)

// IsValid reports whether the label belongs to the closed set.
func (l Label) IsValid() bool {
	switch l {
	case LabelProdutivo, LabelImprodutivo, LabelNeutro:
		return true
	}
	return false
}

// NormalizeLabel lower-cases a label reported by a model. Empty labels become
// neutro. Unknown labels become neutro when strict, otherwise they pass
// through lower-cased.
func NormalizeLabel(raw string, strict bool) Label {
	label := Label(strings.ToLower(strings.TrimSpace(raw)))
	if label == "" {
		return LabelNeutro
	}
	if strict && !label.IsValid() {
		return LabelNeutro
	}
	return label
}

// ClassifyOptions controls one classification call.
type ClassifyOptions struct {
	MaxBatchSize int
	// StrictLabels maps labels outside the closed set to neutro.
	StrictLabels bool
	// IsolateBatchErrors fills a batch with heuristics when its first request
	// fails in transport, instead of aborting the whole call.
	IsolateBatchErrors bool
}

// ClassificationResult is the label and confidence for one message.
type ClassificationResult struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// BatchStatus records how a batch was resolved.
type BatchStatus string

const (
	BatchStatusOK                BatchStatus = "ok"
	BatchStatusReformattedOK     BatchStatus = "reformatted_ok"
	BatchStatusHeuristicFallback BatchStatus = "heuristic_fallback"
)

// Usage is the token accounting reported by the remote model.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// BatchOutcome is diagnostic data for one batch. It never affects results.
type BatchOutcome struct {
	Index         int         `json:"index"`
	Size          int         `json:"size"`
	Raw           string      `json:"raw"`
	Usage         *Usage      `json:"usage,omitempty"`
	ReformatRaw   string      `json:"reformat_attempt,omitempty"`
	ReformatUsage *Usage      `json:"usage_reformat,omitempty"`
	Status        BatchStatus `json:"status"`
	Error         string      `json:"error,omitempty"`
}

const (
	SourceFallback = "fallback"
	SourceNone     = "none"

	FallbackHeuristicSingle = "heuristic_single"
)

// AggregateMeta is returned alongside classification results.
type AggregateMeta struct {
	Source           string                `json:"source"`
	Provider         string                `json:"provider,omitempty"`
	Model            string                `json:"model,omitempty"`
	Fallback         string                `json:"fallback,omitempty"`
	HeuristicDetails *ClassificationResult `json:"heuristic_details,omitempty"`
	Batches          []BatchOutcome        `json:"batches"`
}

// Classification is the aggregated, order-preserving result of one call.
// Results[i] always corresponds to the i-th non-empty input segment.
type Classification struct {
	Results  []ClassificationResult `json:"results"`
	Multiple bool                   `json:"multiple"`
	Meta     AggregateMeta          `json:"meta"`
}

// Payload returns the caller-facing shape: a single {label, score} object for
// single input, an ordered list for multi-message input.
func (c *Classification) Payload() any {
	if !c.Multiple && len(c.Results) == 1 {
		return c.Results[0]
	}
	return c.Results
}

// Labels returns the labels in result order.
func (c *Classification) Labels() []string {
	labels := make([]string, len(c.Results))
	for i, r := range c.Results {
		labels[i] = string(r.Label)
	}
	return labels
}
