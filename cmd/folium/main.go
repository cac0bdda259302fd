// -----------------------------------------------------------------------
// Folium - PDF page artifact and metadata pipeline
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folium/internal/common"
	"github.com/ternarybob/folium/internal/pipeline"
	"github.com/ternarybob/folium/internal/services/artifacts"
	"github.com/ternarybob/folium/internal/services/costs"
	"github.com/ternarybob/folium/internal/services/extraction"
	"github.com/ternarybob/folium/internal/services/llm"
)

var (
	// Command-line flags
	configFile   = flag.String("config", "", "Configuration file path")
	pdfPath      = flag.String("pdf", "", "Source PDF file (overrides config)")
	outputDir    = flag.String("output", "", "Artifact output directory (overrides config)")
	modelName    = flag.String("model", "", "Model identifier, e.g. gemini-2.5-flash or claude/claude-sonnet-4-20250514 (overrides config)")
	stagesSpec   = flag.String("stages", "all", "Comma-separated stages to run: ocr,improve_table,context,enhance,table,image")
	maxPages     = flag.Int("max-pages", 0, "Page cap for partial runs, 0 = all pages (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Folium version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence:
	// 1. Load config (defaults -> file -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner

	path := *configFile
	if path == "" {
		if _, err := os.Stat("folium.toml"); err == nil {
			path = "folium.toml"
		}
	}

	config, err := common.LoadConfig(path)
	if err != nil {
		arbor.NewLogger().Fatal().Str("path", path).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *pdfPath != "" {
		config.Pipeline.PDFPath = *pdfPath
	}
	if *outputDir != "" {
		config.Pipeline.OutputDir = *outputDir
	}
	if *modelName != "" {
		config.Pipeline.ModelName = *modelName
	}
	if *maxPages > 0 {
		config.Pipeline.MaxPages = *maxPages
	}
	if config.Pipeline.OutputDir == "" {
		config.Pipeline.OutputDir = "output"
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger.Info().
		Str("pdf", config.Pipeline.PDFPath).
		Str("output", config.BasePath()).
		Str("model", config.Pipeline.ModelName).
		Str("stages", *stagesSpec).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warn().Str("signal", sig.String()).Msg("Interrupt received, stopping after current pages")
		cancel()
	}()

	report, err := run(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Pipeline run failed")
		os.Exit(1)
	}

	printReport(report, logger)

	if report.Failed() {
		os.Exit(1)
	}
}

func run(ctx context.Context, config *common.Config, logger arbor.ILogger) (*pipeline.RunReport, error) {
	store, err := artifacts.NewStore(config.BasePath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	model, err := llm.NewModelService(ctx, config, config.Pipeline.ModelName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model service: %w", err)
	}
	defer model.Close()

	extractor := extraction.NewService(config, logger)
	ledger := costs.NewLedger()

	orch, err := pipeline.NewOrchestrator(config, store, extractor, model, ledger, logger)
	if err != nil {
		return nil, err
	}

	return orch.Run(ctx, *stagesSpec)
}

func printReport(report *pipeline.RunReport, logger arbor.ILogger) {
	for _, stage := range report.Stages {
		logger.Info().
			Str("stage", string(stage.Stage)).
			Str("status", string(stage.Status)).
			Int("processed", stage.PagesProcessed).
			Int("skipped", stage.PagesSkipped).
			Int("failed", stage.PagesFailed).
			Msg("Stage summary")
		for _, e := range stage.Errors {
			logger.Error().Str("stage", string(stage.Stage)).Msg(e)
		}
	}

	for _, entry := range report.Costs.Breakdown {
		logger.Info().
			Str("call_type", string(entry.CallType)).
			Int("calls", entry.Calls).
			Int("prompt_tokens", entry.PromptTokens).
			Int("completion_tokens", entry.CompletionTokens).
			Str("cost_usd", fmt.Sprintf("%.4f", entry.Cost)).
			Msg("Model usage")
	}

	logger.Info().
		Str("run_id", report.RunID).
		Str("document", report.Document).
		Int("pages", report.Pages).
		Int("model_calls", report.Costs.TotalCalls).
		Str("total_cost_usd", fmt.Sprintf("%.4f", report.Costs.TotalCost)).
		Str("duration", report.Duration.Round(time.Second).String()).
		Msg("Run complete")
}
