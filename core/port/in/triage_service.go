package in

import (
	"context"

	"triage_server/core/domain"
)

// ClassificationService classifies one or many delimiter-separated messages.
type ClassificationService interface {
	Classify(ctx context.Context, text string, opts domain.ClassifyOptions) (*domain.Classification, error)
	Options() domain.ClassifyOptions
}

// ReplyService drafts a reply. It never fails; failures yield a canned reply.
type ReplyService interface {
	GenerateReply(ctx context.Context, text, label string) (string, domain.GenerationMeta)
}

// AnalysisService extracts {resumo, temas, acoes} from one or many messages.
type AnalysisService interface {
	Analyze(ctx context.Context, text string) (*domain.Analysis, domain.GenerationMeta, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(data []byte, filename string) (string, error)
}
