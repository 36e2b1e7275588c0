package classification

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"triage_server/core/domain"

	"github.com/goccy/go-json"
)

// coerceItem turns one {label, score} object from the model into a result.
func coerceItem(item map[string]any, strict bool) domain.ClassificationResult {
	label := domain.LabelNeutro
	if s, ok := item["label"].(string); ok {
		label = domain.NormalizeLabel(s, strict)
	}
	return domain.ClassificationResult{Label: label, Score: coerceScore(item["score"])}
}

// coerceScore converts numbers, numeric strings and booleans. Anything else,
// and NaN, is 0. The result is clamped to [0, 1].
func coerceScore(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		f, _ = t.Float64()
	case int:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0
	}

	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}

// stringify renders a non-object array element for the heuristic.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
