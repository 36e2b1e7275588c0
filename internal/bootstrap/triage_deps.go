package bootstrap

import (
	"net/http"

	"triage_server/adapter/out/extract"
	"triage_server/config"
	"triage_server/core/agent/llm"
	"triage_server/core/port/out"
	"triage_server/core/service/ai"
	"triage_server/core/service/classification"
	"triage_server/pkg/httputil"
	"triage_server/pkg/logger"
)

type Dependencies struct {
	Config *config.Config

	HTTPClient *http.Client
	PoolStats  httputil.ClientPoolStats

	// Completer is the fully decorated gateway. Breaker is nil when the
	// circuit breaker is disabled.
	Completer out.Completer
	Breaker   *llm.BreakerCompleter

	Classifier *classification.Engine
	Replier    *ai.ReplyGenerator
	Analyzer   *ai.AnalysisGenerator
	Extractor  *extract.Extractor
}

// NewDependencies wires the gateway and services. It never dials out; a
// missing credential surfaces as CONFIG_ERROR on the first remote call.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}

	// LLM 전용 HTTP 클라이언트 (커넥션 풀 재사용)
	poolCfg := httputil.LLMClientConfig(cfg.LLMTimeout())
	deps.HTTPClient = httputil.NewOptimizedClient(poolCfg)
	deps.PoolStats = httputil.PoolStats("llm", poolCfg)

	clientCfg := llm.ClientConfig{
		APIKey:     cfg.APIKey(),
		Model:      cfg.LLMModel,
		BaseURL:    cfg.LLMBaseURL,
		Timeout:    cfg.LLMTimeout(),
		HTTPClient: deps.HTTPClient,
	}

	var completer out.Completer
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		completer = llm.NewAnthropicClient(clientCfg)
	default:
		completer = llm.NewClient(clientCfg)
	}
	if cfg.APIKey() == "" {
		logger.Warn("%s API key is not configured; remote calls will fail", cfg.LLMProvider)
	}

	completer = llm.NewInstrumentedCompleter(completer)
	if cfg.BreakerEnabled {
		deps.Breaker = llm.NewBreakerCompleter(completer)
		completer = deps.Breaker
	}
	deps.Completer = completer

	deps.Classifier = classification.NewEngine(completer, classification.Options{
		MaxBatchSize:       cfg.BatchMaxSize,
		StrictLabels:       cfg.StrictLabels,
		IsolateBatchErrors: cfg.BatchIsolateErrors,
	})
	deps.Replier = ai.NewReplyGenerator(completer)
	deps.Analyzer = ai.NewAnalysisGenerator(completer)
	deps.Extractor = extract.NewExtractor()

	logger.WithFields(map[string]any{
		"provider":       cfg.LLMProvider,
		"model":          cfg.LLMModel,
		"batch_max_size": cfg.BatchMaxSize,
		"breaker":        cfg.BreakerEnabled,
	}).Info("Dependencies initialized")

	cleanup := func() {
		deps.HTTPClient.CloseIdleConnections()
	}
	return deps, cleanup, nil
}
