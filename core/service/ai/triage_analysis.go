// Package ai generates replies and structured analyses with the remote model.
package ai

import (
	"context"
	"fmt"

	"triage_server/core/agent/llm"
	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/apperr"
)

// Analysis list limits. Longer lists are truncated, shorter ones kept as is.
const (
	MaxTemas = 10
	MaxAcoes = 5
)

type AnalysisGenerator struct {
	completer out.Completer
}

func NewAnalysisGenerator(completer out.Completer) *AnalysisGenerator {
	return &AnalysisGenerator{completer: completer}
}

// Analyze asks for a summary, themes and actions. Empty text makes no remote
// call. Gateway errors propagate; unrecoverable output is MALFORMED_OUTPUT.
func (g *AnalysisGenerator) Analyze(ctx context.Context, text string) (*domain.Analysis, domain.GenerationMeta, error) {
	if text == "" {
		return &domain.Analysis{}, domain.GenerationMeta{Source: domain.SourceNone}, nil
	}

	res, err := g.completer.Complete(ctx, llm.AnalysisRequest(text))
	if err != nil {
		return nil, domain.GenerationMeta{}, err
	}

	meta := domain.GenerationMeta{
		Source: g.completer.Provider(),
		Model:  res.Model,
		Raw:    res.Content,
		Usage:  res.Usage,
	}

	parsed := llm.ExtractJSON(res.Content, llm.ShapeObject)
	if parsed.Kind != llm.Object {
		return nil, meta, apperr.MalformedOutput(g.completer.Provider(), "model response did not contain a JSON object").
			WithDetail("raw", res.Content)
	}

	temas, cutTemas := stringList(parsed.Object["temas"], MaxTemas)
	acoes, cutAcoes := stringList(parsed.Object["acoes"], MaxAcoes)
	resumo, _ := parsed.Object["resumo"].(string)
	meta.Truncated = cutTemas || cutAcoes

	return &domain.Analysis{Resumo: resumo, Temas: temas, Acoes: acoes}, meta, nil
}

// stringList reads a JSON list, stringifying non-string items, and truncates
// it to limit. A missing or non-list value is an empty list.
func stringList(v any, limit int) ([]string, bool) {
	items, _ := v.([]any)
	truncated := len(items) > limit
	if truncated {
		items = items[:limit]
	}

	list := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			list = append(list, t)
		case nil:
			list = append(list, "")
		default:
			list = append(list, fmt.Sprint(t))
		}
	}
	return list, truncated
}
