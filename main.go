package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"triage_server/adapter/in/http"
	"triage_server/adapter/out/extract"
	"triage_server/config"
	"triage_server/internal/bootstrap"
	"triage_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "triage",
	Short:         "Email triage: classify, draft replies and summarize",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env file if exists (for local development)
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// CLI 출력(stdout)과 로그가 섞이지 않도록 stderr 사용
		output := os.Stdout
		if cmd.Name() != "serve" && cmd != cmd.Root() {
			output = os.Stderr
		}
		logger.Init(logger.Config{
			Level:   logger.ParseLevel(cfg.LogLevel),
			Output:  output,
			Service: "triage",
			Console: cfg.IsDevelopment(),
		})
		return nil
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify text or a .txt/.pdf/.mbox file and draft a reply",
	RunE:  runClassify,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize text or a .txt/.pdf/.mbox file",
	RunE:  runAnalyze,
}

var (
	inputText string
	inputFile string
	batchSize int
)

func init() {
	for _, cmd := range []*cobra.Command{classifyCmd, analyzeCmd} {
		cmd.Flags().StringVar(&inputText, "text", "", "message text; separate messages with a --- line that has a blank line before and after")
		cmd.Flags().StringVar(&inputFile, "file", "", "path to a .txt, .pdf or .mbox file")
		cmd.MarkFlagsMutuallyExclusive("text", "file")
	}
	classifyCmd.Flags().IntVar(&batchSize, "batch-size", 0, "messages per remote call (default from config)")

	rootCmd.AddCommand(serveCmd, classifyCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	app, cleanup, err := bootstrap.NewAPI(cfg)
	if err != nil {
		return fmt.Errorf("initialize API: %w", err)
	}
	defer cleanup()

	// Graceful shutdown with timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("Error shutting down: %v", err)
		} else {
			logger.Info("API server shut down gracefully")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	return app.Listen(addr)
}

func runClassify(cmd *cobra.Command, args []string) error {
	deps, cleanup, err := bootstrap.NewDependencies(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	text, err := readInput(deps.Extractor)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := deps.Classifier.Options()
	if batchSize > 0 {
		opts.MaxBatchSize = batchSize
	}

	cleaned := extract.Preprocess(text)
	result, err := deps.Classifier.Classify(ctx, cleaned, opts)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	reply, replyMeta := deps.Replier.GenerateReply(ctx, cleaned, strings.Join(result.Labels(), ", "))

	return printJSON(http.ClassifyResponse{
		Classificacao: result.Payload(),
		Resposta:      reply,
		Meta: http.ClassifyMeta{
			Origem:           result.Meta.Source,
			ClassificacaoRaw: result.Meta,
			RespostaRaw:      replyMeta,
		},
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	deps, cleanup, err := bootstrap.NewDependencies(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	text, err := readInput(deps.Extractor)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analysis, meta, err := deps.Analyzer.Analyze(ctx, text)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return printJSON(http.AnalysisResponse{Analise: analysis, Meta: meta})
}

func readInput(extractor *extract.Extractor) (string, error) {
	text := inputText
	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", inputFile, err)
		}
		if text, err = extractor.Extract(data, inputFile); err != nil {
			return "", fmt.Errorf("extract %s: %w", inputFile, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no content: pass --text or --file")
	}
	return text, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
