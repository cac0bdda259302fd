package pipeline

import (
	"time"

	"github.com/ternarybob/folium/internal/services/costs"
)

// PageStatus is the outcome of one stage for one page
type PageStatus string

const (
	// StatusExecuted means the stage ran and persisted its output
	StatusExecuted PageStatus = "executed"

	// StatusSkippedExists means the output already existed and reuse is on
	StatusSkippedExists PageStatus = "skipped_exists"

	// StatusFailed means the stage raised an error for this page; later
	// stages that depend on it will not run for this page
	StatusFailed PageStatus = "failed"

	// StatusSkippedDependency means an earlier stage already failed for
	// this page, so this stage never attempted it
	StatusSkippedDependency PageStatus = "skipped_dependency_failed"
)

// StageStatus is the aggregate outcome of one stage over all pages
type StageStatus string

const (
	// StageSuccess means every attempted page completed
	StageSuccess StageStatus = "success"

	// StageSkipped means no page needed work, existing output was reused
	StageSkipped StageStatus = "skipped"

	// StageFailed means at least one page failed
	StageFailed StageStatus = "failed"
)

// StageSummary aggregates one stage's per-page outcomes
type StageSummary struct {
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`

	PagesProcessed int `json:"pages_processed"`
	PagesSkipped   int `json:"pages_skipped"`
	PagesFailed    int `json:"pages_failed"`

	// Errors holds the page-level failure messages, for the run report
	Errors []string `json:"errors,omitempty"`
}

// record tallies one page outcome into the summary
func (s *StageSummary) record(status PageStatus, errMsg string) {
	switch status {
	case StatusExecuted:
		s.PagesProcessed++
	case StatusSkippedExists, StatusSkippedDependency:
		s.PagesSkipped++
	case StatusFailed:
		s.PagesFailed++
		if errMsg != "" {
			s.Errors = append(s.Errors, errMsg)
		}
	}
}

// finalize derives the stage status once every page is accounted for
func (s *StageSummary) finalize() {
	switch {
	case s.PagesFailed > 0:
		s.Status = StageFailed
	case s.PagesProcessed == 0 && s.PagesSkipped > 0:
		s.Status = StageSkipped
	default:
		s.Status = StageSuccess
	}
}

// RunReport is the result of one pipeline run
type RunReport struct {
	RunID    string         `json:"run_id"`
	Document string         `json:"document"`
	Pages    int            `json:"pages"`
	Stages   []StageSummary `json:"stages"`
	Costs    costs.Summary  `json:"costs"`
	Duration time.Duration  `json:"duration"`
}

// Failed reports whether any stage had page failures
func (r *RunReport) Failed() bool {
	for _, s := range r.Stages {
		if s.PagesFailed > 0 {
			return true
		}
	}
	return false
}
