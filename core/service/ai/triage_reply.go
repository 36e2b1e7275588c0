package ai

import (
	"context"
	"strings"

	"triage_server/core/agent/llm"
	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/logger"
)

// FallbackReply is returned whenever the reply cannot be generated.
const FallbackReply = "Obrigado pelo envio. Recebi seu e-mail e vou analisar os pontos e retornar em breve."

type ReplyGenerator struct {
	completer out.Completer
}

func NewReplyGenerator(completer out.Completer) *ReplyGenerator {
	return &ReplyGenerator{completer: completer}
}

// GenerateReply drafts a short professional reply for text given its label.
func (g *ReplyGenerator) GenerateReply(ctx context.Context, text, label string) (string, domain.GenerationMeta) {
	if text == "" {
		return "", domain.GenerationMeta{Source: domain.SourceNone}
	}

	res, err := g.completer.Complete(ctx, llm.ReplyRequest(text, label))
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("reply generation failed, using canned reply")
		return FallbackReply, domain.GenerationMeta{
			Source:           domain.SourceFallback,
			Error:            err.Error(),
			FallbackResponse: true,
		}
	}

	return strings.TrimSpace(res.Content), domain.GenerationMeta{
		Source: g.completer.Provider(),
		Model:  res.Model,
		Raw:    res.Content,
		Usage:  res.Usage,
	}
}
