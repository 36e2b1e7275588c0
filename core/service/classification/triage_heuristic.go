// Package classification implements the batch classification protocol and
// its keyword heuristic fallback.
package classification

import (
	"math"
	"strings"

	"triage_server/core/domain"
)

// 생산성 키워드 (substring match, lower-case)
var productiveKeywords = []string{
	"reunião", "deadline", "prazo", "entrega", "concluir", "aprovado", "confirma", "ok",
	"agendar", "agendada", "projeto", "tarefa", "pendente", "prioridade", "ajuda",
}

// 스팸/무의미 키워드
var unproductiveKeywords = []string{
	"spam", "promoção", "oferta", "unsubscribe", "loteria", "ganhou", "propaganda", "anúncio", "fake",
}

const (
	heuristicNoMatchScore = 0.3
	heuristicBaseScore    = 0.5
	heuristicMaxBonus     = 0.4
)

// ClassifyHeuristic labels text by counting distinct keywords of each set.
// Productive wins ties. It is pure and deterministic.
func ClassifyHeuristic(text string) domain.ClassificationResult {
	if text == "" {
		return domain.ClassificationResult{Label: domain.LabelNeutro, Score: 0}
	}

	lower := strings.ToLower(text)
	prod := countKeywords(lower, productiveKeywords)
	unprod := countKeywords(lower, unproductiveKeywords)

	switch {
	case prod == 0 && unprod == 0:
		return domain.ClassificationResult{Label: domain.LabelNeutro, Score: heuristicNoMatchScore}
	case prod >= unprod:
		return domain.ClassificationResult{Label: domain.LabelProdutivo, Score: keywordScore(prod, len(productiveKeywords))}
	default:
		return domain.ClassificationResult{Label: domain.LabelImprodutivo, Score: keywordScore(unprod, len(unproductiveKeywords))}
	}
}

func countKeywords(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

func keywordScore(matches, setSize int) float64 {
	score := heuristicBaseScore + math.Min(float64(matches)/float64(setSize), heuristicMaxBonus)
	return math.Round(score*100) / 100
}
