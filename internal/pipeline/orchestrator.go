// -----------------------------------------------------------------------
// Pipeline Orchestrator - Stage scheduling, skip logic, failure isolation
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folium/internal/common"
	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
	"github.com/ternarybob/folium/internal/schemas"
	"github.com/ternarybob/folium/internal/services/artifacts"
	"github.com/ternarybob/folium/internal/services/costs"
)

// Orchestrator drives the stage graph over a document: stages run in fixed
// order with a barrier between them, pages run concurrently within a stage,
// and one page's failure never aborts the others.
type Orchestrator struct {
	config    *common.Config
	store     interfaces.ArtifactStore
	extractor interfaces.DocumentExtractor
	model     interfaces.ModelService
	validator *schemas.Validator
	ledger    *costs.Ledger
	logger    arbor.ILogger
}

// NewOrchestrator creates a pipeline orchestrator
func NewOrchestrator(
	config *common.Config,
	store interfaces.ArtifactStore,
	extractor interfaces.DocumentExtractor,
	model interfaces.ModelService,
	ledger *costs.Ledger,
	logger arbor.ILogger,
) (*Orchestrator, error) {
	validator, err := schemas.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile metadata schemas: %w", err)
	}

	return &Orchestrator{
		config:    config,
		store:     store,
		extractor: extractor,
		model:     model,
		validator: validator,
		ledger:    ledger,
		logger:    logger,
	}, nil
}

// Run executes the requested stages (plus their dependencies) and returns
// the per-stage report. stagesSpec is a comma-separated stage list; empty
// or "all" runs the whole pipeline.
func (o *Orchestrator) Run(ctx context.Context, stagesSpec string) (*RunReport, error) {
	start := time.Now()

	requested, err := ParseStages(stagesSpec)
	if err != nil {
		return nil, err
	}
	stages := ExpandStages(requested)

	report := &RunReport{RunID: uuid.NewString()}

	o.logger.Info().
		Str("run_id", report.RunID).
		Str("pdf", o.config.Pipeline.PDFPath).
		Str("model", o.model.Model()).
		Msg("Starting pipeline run")

	doc, ocrSummary, err := o.runOCR(ctx)
	if err != nil {
		return nil, err
	}
	report.Document = doc.Name
	report.Pages = doc.PageCount()
	report.Stages = append(report.Stages, *ocrSummary)

	skip := &skipPolicy{store: o.store, config: o.config.Pipeline}
	tracker := newFailureTracker()

	for _, stage := range stages {
		if stage == StageOCR {
			continue
		}

		step := o.buildStep(stage)
		summary := o.runStage(ctx, stage, doc, step, skip, tracker)
		report.Stages = append(report.Stages, summary)

		if cs, ok := step.(*contextStep); ok {
			if fields := cs.fields(); !fields.Empty() {
				o.logger.Info().
					Str("document_title", fields.DocumentTitle).
					Str("document_id", fields.DocumentID).
					Str("revision", fields.Revision).
					Msg("Adopted document-level fields")
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	report.Costs = o.ledger.Summary()
	report.Duration = time.Since(start)

	o.logger.Info().
		Str("run_id", report.RunID).
		Int("pages", report.Pages).
		Str("total_cost_usd", fmt.Sprintf("%.4f", report.Costs.TotalCost)).
		Str("duration", report.Duration.Round(time.Second).String()).
		Msg("Pipeline run complete")

	return report, nil
}

// runOCR produces the document. The skip decision is per page: pages whose
// extraction artifacts already exist are reloaded and marked skipped, only
// the rest are extracted, so partially processed documents resume. Every
// other stage depends on its output, so it always runs first.
func (o *Orchestrator) runOCR(ctx context.Context) (*models.Document, *StageSummary, error) {
	skip := &skipPolicy{store: o.store, config: o.config.Pipeline}
	summary := &StageSummary{Stage: StageOCR}
	pdfPath := o.config.Pipeline.PDFPath

	if _, err := os.Stat(pdfPath); err != nil {
		pages, _ := o.store.PageNumbers()
		if len(pages) == 0 {
			return nil, nil, &models.DependencyError{
				Stage:      string(StageOCR),
				Dependency: "source pdf",
				Reason:     fmt.Sprintf("file not found: %s", pdfPath),
			}
		}
		doc, err := o.loadDocument()
		if err != nil {
			return nil, nil, err
		}
		summary.PagesSkipped = doc.PageCount()
		summary.finalize()
		o.logger.Warn().
			Str("pdf", pdfPath).
			Msg("Source PDF is gone, continuing from persisted artifacts")
		return doc, summary, nil
	}

	pageCount, err := o.extractor.PageCount(ctx, pdfPath)
	if err != nil {
		return nil, nil, err
	}
	if max := o.config.Pipeline.MaxPages; max > 0 && pageCount > max {
		pageCount = max
	}

	var missing []int
	for n := 1; n <= pageCount; n++ {
		if skip.shouldSkip(StageOCR, &models.Page{Number: n}) {
			summary.record(StatusSkippedExists, "")
			continue
		}
		missing = append(missing, n)
	}

	extracted := make(map[int]*models.Page, len(missing))
	if len(missing) > 0 {
		partial, err := o.extractor.Extract(ctx, pdfPath, o.store, missing)
		if err != nil {
			return nil, nil, err
		}
		for _, page := range partial.Pages {
			extracted[page.Number] = page
			summary.record(StatusExecuted, "")
		}
	}

	if summary.PagesSkipped > 0 {
		o.logger.Info().
			Int("skipped", summary.PagesSkipped).
			Int("extracted", summary.PagesProcessed).
			Msg("Reusing existing extraction artifacts")
	}

	doc := &models.Document{
		SourcePath: pdfPath,
		Name:       strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath)),
	}
	for n := 1; n <= pageCount; n++ {
		if page, ok := extracted[n]; ok {
			doc.Pages = append(doc.Pages, page)
			continue
		}
		page, err := artifacts.LoadPage(o.store, n)
		if err != nil {
			return nil, nil, err
		}
		doc.Pages = append(doc.Pages, page)
	}

	summary.finalize()
	return doc, summary, nil
}

func (o *Orchestrator) loadDocument() (*models.Document, error) {
	name := filepath.Base(o.config.BasePath())
	doc, err := artifacts.LoadDocument(o.store, o.config.Pipeline.PDFPath, name)
	if err != nil {
		return nil, err
	}
	if max := o.config.Pipeline.MaxPages; max > 0 && doc.PageCount() > max {
		doc.Pages = doc.Pages[:max]
	}
	return doc, nil
}

// buildStep wires the step implementation for one stage
func (o *Orchestrator) buildStep(stage Stage) pageStep {
	switch stage {
	case StageImproveTable:
		return &improveTableStep{store: o.store, model: o.model, ledger: o.ledger, logger: o.logger}
	case StageContext:
		return &contextStep{
			store:     o.store,
			model:     o.model,
			validator: o.validator,
			ledger:    o.ledger,
			windows:   NewWindowBuilder(o.store),
			logger:    o.logger,
		}
	case StageEnhance:
		return &enhanceStep{store: o.store, logger: o.logger}
	case StageTable:
		return &tableStep{store: o.store, model: o.model, validator: o.validator, ledger: o.ledger, logger: o.logger}
	case StageImage:
		return &imageStep{store: o.store, model: o.model, validator: o.validator, ledger: o.ledger, logger: o.logger}
	default:
		return nil
	}
}

// pageStep is one stage's per-page work unit
type pageStep interface {
	run(ctx context.Context, doc *models.Document, page *models.Page) error
}

// runStage executes one stage over all pages with bounded concurrency. The
// returned summary is the stage's barrier: it is only produced after every
// page has finished.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, doc *models.Document, step pageStep, skip *skipPolicy, tracker *failureTracker) StageSummary {
	summary := StageSummary{Stage: stage}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.config.Workers.PageConcurrency)
	)

	o.logger.Info().
		Str("stage", string(stage)).
		Int("pages", doc.PageCount()).
		Int("concurrency", o.config.Workers.PageConcurrency).
		Msg("Stage starting")

	// skip decisions run on the coordinating goroutine; the summary writes
	// still need the mutex because page workers share it
	for _, page := range doc.Pages {
		if tracker.dependencyFailed(stage, page.Number) {
			mu.Lock()
			summary.record(StatusSkippedDependency, "")
			mu.Unlock()
			o.logger.Debug().
				Str("stage", string(stage)).
				Int("page", page.Number).
				Msg("Skipping page, an earlier stage failed for it")
			continue
		}
		if skip.shouldSkip(stage, page) {
			mu.Lock()
			summary.record(StatusSkippedExists, "")
			mu.Unlock()
			continue
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(page *models.Page) {
			defer wg.Done()
			defer func() { <-sem }()

			err := step.run(ctx, doc, page)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				tracker.markFailed(stage, page.Number)
				summary.record(StatusFailed, fmt.Sprintf("page %d: %v", page.Number, err))
				o.logger.Error().
					Str("stage", string(stage)).
					Int("page", page.Number).
					Err(err).
					Msg("Page failed")
				return
			}
			summary.record(StatusExecuted, "")
		}(page)
	}

	wg.Wait()
	summary.finalize()

	o.logger.Info().
		Str("stage", string(stage)).
		Str("status", string(summary.Status)).
		Int("processed", summary.PagesProcessed).
		Int("skipped", summary.PagesSkipped).
		Int("failed", summary.PagesFailed).
		Msg("Stage complete")

	return summary
}

// failureTracker records which stages failed for which pages so dependent
// stages skip those pages instead of running against missing output.
type failureTracker struct {
	mu     sync.Mutex
	failed map[int]map[Stage]bool
}

func newFailureTracker() *failureTracker {
	return &failureTracker{failed: make(map[int]map[Stage]bool)}
}

func (t *failureTracker) markFailed(stage Stage, pageNum int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failed[pageNum] == nil {
		t.failed[pageNum] = make(map[Stage]bool)
	}
	t.failed[pageNum][stage] = true
}

// dependencyFailed reports whether any transitive dependency of stage has
// failed for the page.
func (t *failureTracker) dependencyFailed(stage Stage, pageNum int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	failed := t.failed[pageNum]
	if len(failed) == 0 {
		return false
	}

	seen := make(map[Stage]bool)
	var visit func(st Stage) bool
	visit = func(st Stage) bool {
		for _, dep := range stageDeps[st] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if failed[dep] || visit(dep) {
				return true
			}
		}
		return false
	}
	return visit(stage)
}
