package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/apperr"

	"github.com/goccy/go-json"
)

type fakeCompleter struct {
	content string
	err     error
	calls   int
	last    out.CompletionRequest
}

func (f *fakeCompleter) Provider() string { return "openai" }

func (f *fakeCompleter) Complete(ctx context.Context, req out.CompletionRequest) (*out.Completion, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &out.Completion{Content: f.content, Model: "gpt-test", Usage: &domain.Usage{TotalTokens: 42}}, nil
}

func TestGenerateReply(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		f := &fakeCompleter{}
		reply, meta := NewReplyGenerator(f).GenerateReply(context.Background(), "", "neutro")
		if reply != "" || meta.Source != domain.SourceNone || f.calls != 0 {
			t.Errorf("expected no call and empty reply, got %q %+v", reply, meta)
		}
	})

	t.Run("model reply is trimmed", func(t *testing.T) {
		f := &fakeCompleter{content: "\n  Olá! Confirmo o recebimento.  \n"}
		reply, meta := NewReplyGenerator(f).GenerateReply(context.Background(), "Prazo hoje", "produtivo")
		if reply != "Olá! Confirmo o recebimento." {
			t.Errorf("unexpected reply %q", reply)
		}
		if meta.Source != "openai" || meta.Usage == nil || meta.Raw == "" {
			t.Errorf("unexpected meta %+v", meta)
		}
		if f.last.MaxTokens != 2500 || f.last.Temperature != 0.2 {
			t.Errorf("unexpected request budget %+v", f.last)
		}
		if !strings.Contains(f.last.UserPrompt, "Classificação: produtivo") {
			t.Errorf("label must be part of the prompt")
		}
	})

	t.Run("failure yields canned reply", func(t *testing.T) {
		f := &fakeCompleter{err: apperr.ExternalError("openai", errors.New("timeout"))}
		reply, meta := NewReplyGenerator(f).GenerateReply(context.Background(), "texto", "neutro")
		if reply != FallbackReply {
			t.Errorf("expected canned reply, got %q", reply)
		}
		if meta.Source != domain.SourceFallback || !meta.FallbackResponse || meta.Error == "" {
			t.Errorf("unexpected meta %+v", meta)
		}
	})
}

func TestAnalyzeEmptyMakesNoCall(t *testing.T) {
	f := &fakeCompleter{}
	analysis, meta, err := NewAnalysisGenerator(f).Analyze(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if f.calls != 0 {
		t.Errorf("expected no remote call, got %d", f.calls)
	}
	if meta.Source != domain.SourceNone || !analysis.IsZero() {
		t.Errorf("unexpected result %+v %+v", analysis, meta)
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("empty analysis serialized as %s, want {}", data)
	}
}

func TestAnalyzeTruncatesLists(t *testing.T) {
	temas := make([]string, 12)
	for i := range temas {
		temas[i] = fmt.Sprintf("%q", fmt.Sprintf("tema %d", i))
	}
	content := fmt.Sprintf("Segue a análise:\n{\"resumo\":\"Resumo curto.\",\"temas\":[%s],\"acoes\":[\"ligar\", 3, null]}",
		strings.Join(temas, ","))

	f := &fakeCompleter{content: content}
	analysis, meta, err := NewAnalysisGenerator(f).Analyze(context.Background(), "vários e-mails")
	if err != nil {
		t.Fatal(err)
	}

	if len(analysis.Temas) != MaxTemas || analysis.Temas[9] != "tema 9" {
		t.Errorf("expected 10 temas, got %v", analysis.Temas)
	}
	if len(analysis.Acoes) != 3 || analysis.Acoes[1] != "3" {
		t.Errorf("short lists are kept, non-strings stringified: %v", analysis.Acoes)
	}
	if !meta.Truncated {
		t.Error("expected truncated flag")
	}
	if analysis.Resumo != "Resumo curto." {
		t.Errorf("unexpected resumo %q", analysis.Resumo)
	}
	if f.last.MaxTokens != 1000 || f.last.Temperature != 0 {
		t.Errorf("unexpected request budget %+v", f.last)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	t.Run("unparseable output", func(t *testing.T) {
		f := &fakeCompleter{content: "Não foi possível analisar."}
		_, _, err := NewAnalysisGenerator(f).Analyze(context.Background(), "texto")
		if !apperr.IsCode(err, apperr.CodeMalformedOutput) {
			t.Errorf("expected MALFORMED_OUTPUT, got %v", err)
		}
	})

	t.Run("gateway error propagates", func(t *testing.T) {
		f := &fakeCompleter{err: apperr.ConfigError("OPENAI_API_KEY is not configured")}
		_, _, err := NewAnalysisGenerator(f).Analyze(context.Background(), "texto")
		if !apperr.IsCode(err, apperr.CodeConfigError) {
			t.Errorf("expected CONFIG_ERROR, got %v", err)
		}
	})
}
