package out

import (
	"context"

	"triage_server/core/domain"
)

// CompletionRequest is one system + user exchange with the remote model.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Completion is the text returned by the model plus its usage report.
// Content is "" when the provider returned no choices.
type Completion struct {
	Content string
	Usage   *domain.Usage
	Model   string
}

// Completer LLM 게이트웨이 인터페이스
//
// Implementations never retry. Missing credentials surface as
// apperr.CodeConfigError, transport failures as apperr.CodeExternalError or
// apperr.CodeTimeout.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Provider() string
}
