package classification

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/core/port/out"
	"triage_server/pkg/apperr"
)

var _ in.ClassificationService = (*Engine)(nil)

// scriptedCompleter answers each call with the next scripted reply.
type scriptedCompleter struct {
	replies  []scriptedReply
	requests []out.CompletionRequest
}

type scriptedReply struct {
	content string
	err     error
}

func (s *scriptedCompleter) Provider() string { return "openai" }

func (s *scriptedCompleter) Complete(ctx context.Context, req out.CompletionRequest) (*out.Completion, error) {
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return nil, fmt.Errorf("unexpected call %d", len(s.requests))
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &out.Completion{Content: r.content, Model: "gpt-test", Usage: &domain.Usage{TotalTokens: 10}}, nil
}

func reply(content string) scriptedReply { return scriptedReply{content: content} }

func failure(err error) scriptedReply { return scriptedReply{err: err} }

func arrayOf(n int, label string) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"label":%q,"score":0.8}`, label)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func messages(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("mensagem %d", i)
	}
	return domain.JoinMessages(parts)
}

func TestClassifyHeuristic(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantLabel domain.Label
		wantScore float64
	}{
		{"empty", "", domain.LabelNeutro, 0},
		{"no keywords", "Bom dia a todos.", domain.LabelNeutro, 0.3},
		{"productive", "Prazo de entrega é hoje, favor confirmar.", domain.LabelProdutivo, 0.7},
		{"unproductive", "Você ganhou na loteria! Oferta imperdível.", domain.LabelImprodutivo, 0.83},
		{"tie goes to productive", "Projeto spam", domain.LabelProdutivo, 0.57},
		{"case insensitive", "REUNIÃO amanhã", domain.LabelProdutivo, 0.57},
		{"bonus capped", "reunião deadline prazo entrega concluir aprovado confirma agendar projeto tarefa pendente", domain.LabelProdutivo, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyHeuristic(tt.text)
			if got.Label != tt.wantLabel || got.Score != tt.wantScore {
				t.Errorf("ClassifyHeuristic(%q) = %v/%v, want %v/%v", tt.text, got.Label, got.Score, tt.wantLabel, tt.wantScore)
			}
		})
	}
}

func TestCoerceScore(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{0.42, 0.42},
		{"0.6", 0.6},
		{" 1 ", 1},
		{true, 1},
		{false, 0},
		{nil, 0},
		{"alto", 0},
		{[]any{1.0}, 0},
		{1.7, 1},
		{-0.2, 0},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		if got := coerceScore(tt.in); got != tt.want {
			t.Errorf("coerceScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClassifyEmptyText(t *testing.T) {
	e := NewEngine(&scriptedCompleter{}, DefaultOptions())
	_, err := e.Classify(context.Background(), "  \n\n---\n\n  ", DefaultOptions())
	if !apperr.IsCode(err, apperr.CodeBadRequest) {
		t.Errorf("expected BAD_REQUEST, got %v", err)
	}
}

func TestClassifySingle(t *testing.T) {
	t.Run("model object", func(t *testing.T) {
		c := &scriptedCompleter{replies: []scriptedReply{reply(`{"label":"Improdutivo","score":0.91}`)}}
		res, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), "Promoção!", DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if res.Multiple || len(res.Results) != 1 {
			t.Fatalf("expected single result, got %+v", res)
		}
		if res.Results[0] != (domain.ClassificationResult{Label: domain.LabelImprodutivo, Score: 0.91}) {
			t.Errorf("unexpected result %+v", res.Results[0])
		}
		if res.Meta.Source != "openai" || res.Meta.Fallback != "" {
			t.Errorf("unexpected meta %+v", res.Meta)
		}
		if c.requests[0].MaxTokens != 800 || c.requests[0].Temperature != 0 {
			t.Errorf("unexpected request budget %+v", c.requests[0])
		}
	})

	t.Run("prose falls back to heuristic", func(t *testing.T) {
		c := &scriptedCompleter{replies: []scriptedReply{reply("Acho que é produtivo.")}}
		text := "Prazo de entrega é hoje, favor confirmar."
		res, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), text, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if res.Meta.Fallback != domain.FallbackHeuristicSingle || res.Meta.HeuristicDetails == nil {
			t.Fatalf("expected heuristic_single fallback, got %+v", res.Meta)
		}
		if res.Results[0] != (domain.ClassificationResult{Label: domain.LabelProdutivo, Score: 0.7}) {
			t.Errorf("unexpected result %+v", res.Results[0])
		}
	})

	t.Run("transport error is fatal", func(t *testing.T) {
		c := &scriptedCompleter{replies: []scriptedReply{failure(apperr.ExternalError("openai", errors.New("503")))}}
		_, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), "oi", DefaultOptions())
		if !apperr.IsTransport(err) {
			t.Errorf("expected transport error, got %v", err)
		}
	})
}

func TestClassifyBatchesSplitsInOrder(t *testing.T) {
	c := &scriptedCompleter{replies: []scriptedReply{
		reply(arrayOf(10, "produtivo")),
		reply(arrayOf(2, "improdutivo")),
	}}
	res, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), messages(12), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if len(c.requests) != 2 {
		t.Fatalf("expected 2 batch requests, got %d", len(c.requests))
	}
	if !strings.Contains(c.requests[0].UserPrompt, "mensagem 9") || strings.Contains(c.requests[0].UserPrompt, "mensagem 10") {
		t.Error("first batch must hold messages 0-9")
	}
	if !strings.Contains(c.requests[1].UserPrompt, "mensagem 11") {
		t.Error("second batch must hold messages 10-11")
	}

	if len(res.Results) != 12 || !res.Multiple {
		t.Fatalf("expected 12 multi results, got %d", len(res.Results))
	}
	for i, r := range res.Results {
		want := domain.LabelProdutivo
		if i >= 10 {
			want = domain.LabelImprodutivo
		}
		if r.Label != want {
			t.Errorf("result %d: got %s, want %s", i, r.Label, want)
		}
	}
	if len(res.Meta.Batches) != 2 || res.Meta.Batches[0].Size != 10 || res.Meta.Batches[1].Size != 2 {
		t.Errorf("unexpected batch outcomes %+v", res.Meta.Batches)
	}
	for _, b := range res.Meta.Batches {
		if b.Status != domain.BatchStatusOK {
			t.Errorf("batch %d: expected ok, got %s", b.Index, b.Status)
		}
	}
	if res.Meta.Source != "openai" {
		t.Errorf("expected openai source, got %s", res.Meta.Source)
	}
}

func TestClassifyBatchRepair(t *testing.T) {
	c := &scriptedCompleter{replies: []scriptedReply{
		reply("Aqui está: " + arrayOf(2, "neutro")),
		reply("```json\n" + arrayOf(3, "produtivo") + "\n```"),
	}}
	res, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), messages(3), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	b := res.Meta.Batches[0]
	if b.Status != domain.BatchStatusReformattedOK {
		t.Fatalf("expected reformatted_ok, got %s", b.Status)
	}
	if b.ReformatRaw == "" {
		t.Error("expected reformat attempt to be recorded")
	}
	if c.requests[1].UserPrompt != "Reformate a saída anterior como JSON array." {
		t.Errorf("repair request must carry only the reformat instruction, got %q", c.requests[1].UserPrompt)
	}
	for _, r := range res.Results {
		if r.Label != domain.LabelProdutivo {
			t.Errorf("expected repaired labels, got %s", r.Label)
		}
	}
}

func TestClassifyBatchHeuristicFallback(t *testing.T) {
	text := domain.JoinMessages([]string{
		"Reunião de projeto amanhã",
		"Prazo de entrega é hoje, favor confirmar.",
		"Você ganhou uma oferta",
	})

	t.Run("short array fills missing slots", func(t *testing.T) {
		c := &scriptedCompleter{replies: []scriptedReply{
			reply(`[{"label":"neutro","score":0.2}, "spam total"]`),
			reply("não sei"),
		}}
		res, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), text, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}

		want := []domain.ClassificationResult{
			{Label: domain.LabelNeutro, Score: 0.2},
			ClassifyHeuristic("spam total"),
			ClassifyHeuristic("Você ganhou uma oferta"),
		}
		for i := range want {
			if res.Results[i] != want[i] {
				t.Errorf("slot %d: got %+v, want %+v", i, res.Results[i], want[i])
			}
		}
		if res.Meta.Batches[0].Status != domain.BatchStatusHeuristicFallback {
			t.Errorf("expected heuristic_fallback, got %s", res.Meta.Batches[0].Status)
		}
		if res.Meta.Source != "openai" {
			t.Errorf("partial model output still counts as model source, got %s", res.Meta.Source)
		}
	})

	t.Run("unparseable twice uses heuristic for every message", func(t *testing.T) {
		c := &scriptedCompleter{replies: []scriptedReply{reply("desculpe"), reply("ainda não")}}
		res, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), text, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if res.Results[1] != (domain.ClassificationResult{Label: domain.LabelProdutivo, Score: 0.7}) {
			t.Errorf("unexpected heuristic result %+v", res.Results[1])
		}
		if res.Meta.Source != domain.SourceFallback {
			t.Errorf("expected fallback source, got %s", res.Meta.Source)
		}
	})

	t.Run("repair transport error is swallowed", func(t *testing.T) {
		c := &scriptedCompleter{replies: []scriptedReply{
			reply("desculpe"),
			failure(apperr.ExternalError("openai", errors.New("reset"))),
		}}
		res, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), text, DefaultOptions())
		if err != nil {
			t.Fatalf("repair errors must not abort: %v", err)
		}
		if len(res.Results) != 3 {
			t.Errorf("expected 3 results, got %d", len(res.Results))
		}
	})
}

func TestClassifyBatchNonObjectItemsUseOriginalMessage(t *testing.T) {
	text := domain.JoinMessages([]string{"Promoção imperdível", "Bom dia"})
	c := &scriptedCompleter{replies: []scriptedReply{reply(`["produtivo", {"label":"urgente","score":"0.4"}]`)}}

	res, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), text, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Results[0] != ClassifyHeuristic("Promoção imperdível") {
		t.Errorf("non-object item must use the original message, got %+v", res.Results[0])
	}
	if res.Results[1] != (domain.ClassificationResult{Label: domain.LabelNeutro, Score: 0.4}) {
		t.Errorf("unknown label must be neutro in strict mode, got %+v", res.Results[1])
	}

	c = &scriptedCompleter{replies: []scriptedReply{reply(`["produtivo", {"label":"urgente","score":"0.4"}]`)}}
	lenient := DefaultOptions()
	lenient.StrictLabels = false
	res, err = NewEngine(c, lenient).Classify(context.Background(), text, lenient)
	if err != nil {
		t.Fatal(err)
	}
	if res.Results[1].Label != domain.Label("urgente") {
		t.Errorf("lenient mode must keep the label, got %s", res.Results[1].Label)
	}
}

func TestClassifyBatchErrorIsolation(t *testing.T) {
	transportErr := apperr.ExternalError("openai", errors.New("connection refused"))

	t.Run("isolated", func(t *testing.T) {
		c := &scriptedCompleter{replies: []scriptedReply{
			reply(arrayOf(2, "produtivo")),
			failure(transportErr),
		}}
		opts := DefaultOptions()
		opts.MaxBatchSize = 2
		res, err := NewEngine(c, opts).Classify(context.Background(), messages(4), opts)
		if err != nil {
			t.Fatalf("isolated batch failure must not abort: %v", err)
		}
		if len(res.Results) != 4 {
			t.Fatalf("expected 4 results, got %d", len(res.Results))
		}
		second := res.Meta.Batches[1]
		if second.Status != domain.BatchStatusHeuristicFallback || second.Error == "" {
			t.Errorf("expected recorded heuristic fallback, got %+v", second)
		}
		if res.Meta.Batches[0].Status != domain.BatchStatusOK {
			t.Errorf("first batch must stay ok")
		}
	})

	t.Run("not isolated", func(t *testing.T) {
		c := &scriptedCompleter{replies: []scriptedReply{
			reply(arrayOf(2, "produtivo")),
			failure(transportErr),
		}}
		opts := DefaultOptions()
		opts.MaxBatchSize = 2
		opts.IsolateBatchErrors = false
		if _, err := NewEngine(c, opts).Classify(context.Background(), messages(4), opts); !apperr.IsTransport(err) {
			t.Errorf("expected transport error to abort, got %v", err)
		}
	})

	t.Run("config error always aborts", func(t *testing.T) {
		c := &scriptedCompleter{replies: []scriptedReply{failure(apperr.ConfigError("OPENAI_API_KEY is not configured"))}}
		if _, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), messages(3), DefaultOptions()); !apperr.IsCode(err, apperr.CodeConfigError) {
			t.Errorf("expected CONFIG_ERROR, got %v", err)
		}
	})
}

func TestClassifyZeroBatchSizeUsesDefault(t *testing.T) {
	c := &scriptedCompleter{replies: []scriptedReply{reply(arrayOf(10, "neutro")), reply(arrayOf(1, "neutro"))}}
	res, err := NewEngine(c, DefaultOptions()).Classify(context.Background(), messages(11), Options{StrictLabels: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Meta.Batches) != 2 {
		t.Errorf("expected default batch size 10, got %d batches", len(res.Meta.Batches))
	}
}
