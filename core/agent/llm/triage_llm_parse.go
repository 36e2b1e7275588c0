package llm

import (
	"strings"

	"github.com/goccy/go-json"
)

// Shape is the JSON container a caller expects from the model.
type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
)

func (s Shape) brackets() (left, right string) {
	if s == ShapeObject {
		return "{", "}"
	}
	return "[", "]"
}

// ParsedKind tags the result of ExtractJSON.
type ParsedKind int

const (
	Unparseable ParsedKind = iota
	Array
	Object
)

// Parsed is the outcome of ExtractJSON. Exactly one of Array or Object is set
// according to Kind.
type Parsed struct {
	Kind   ParsedKind
	Array  []any
	Object map[string]any
}

// ExtractJSON recovers a JSON value from model output that may carry prose or
// code fences around it. It never fails; unrecoverable output is Unparseable.
func ExtractJSON(raw string, shape Shape) Parsed {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Parsed{}
	}

	if p, ok := decodeContainer(text); ok {
		return p
	}

	left, right := shape.brackets()
	start := strings.Index(text, left)
	end := strings.LastIndex(text, right)
	if start == -1 || end == -1 || end <= start {
		return Parsed{}
	}
	if p, ok := decodeContainer(text[start : end+1]); ok {
		return p
	}
	return Parsed{}
}

func decodeContainer(s string) (Parsed, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Parsed{}, false
	}
	switch t := v.(type) {
	case []any:
		return Parsed{Kind: Array, Array: t}, true
	case map[string]any:
		return Parsed{Kind: Object, Object: t}, true
	}
	return Parsed{}, false
}
