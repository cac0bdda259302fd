// -----------------------------------------------------------------------
// Cost Ledger - Append-only accounting of model call token/dollar cost
// -----------------------------------------------------------------------

package costs

import (
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/folium/internal/interfaces"
)

// Record is one appended cost entry. Records are never mutated after append,
// only summed.
type Record struct {
	CallType         interfaces.CallType `json:"call_type"`
	Model            string              `json:"model"`
	PromptTokens     int                 `json:"prompt_tokens"`
	CompletionTokens int                 `json:"completion_tokens"`
	Cost             float64             `json:"cost"`
	At               time.Time           `json:"at"`
}

// CallTypeSummary aggregates the records of one call type
type CallTypeSummary struct {
	CallType         interfaces.CallType `json:"call_type"`
	Calls            int                 `json:"calls"`
	PromptTokens     int                 `json:"prompt_tokens"`
	CompletionTokens int                 `json:"completion_tokens"`
	TotalTokens      int                 `json:"total_tokens"`
	Cost             float64             `json:"cost"`
}

// Summary is a point-in-time aggregate of the ledger
type Summary struct {
	TotalCost             float64           `json:"total_cost"`
	TotalPromptTokens     int               `json:"total_prompt_tokens"`
	TotalCompletionTokens int               `json:"total_completion_tokens"`
	TotalTokens           int               `json:"total_tokens"`
	TotalCalls            int               `json:"total_calls"`
	Breakdown             []CallTypeSummary `json:"breakdown"`
}

// Ledger accumulates model call cost across arbitrarily many calls. It is
// safe for concurrent use by page workers; one mutex guards both append and
// summary reads. A ledger is normally scoped to one orchestrator run, but
// callers may share one instance across multiple document runs to get
// cumulative totals. Sharing is a constructor-level choice, not a global.
type Ledger struct {
	mu      sync.Mutex
	records []Record
}

// NewLedger creates an empty cost ledger
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends one call's accounting. Non-blocking beyond the mutex.
func (l *Ledger) Record(callType interfaces.CallType, model string, promptTokens, completionTokens int, cost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, Record{
		CallType:         callType,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Cost:             cost,
		At:               time.Now(),
	})
}

// RecordUsage appends the usage of one completed model result
func (l *Ledger) RecordUsage(callType interfaces.CallType, model string, usage interfaces.ModelUsage) {
	l.Record(callType, model, usage.PromptTokens, usage.CompletionTokens, usage.Cost)
}

// Count returns the number of appended records
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Summary aggregates all records appended so far
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Summary
	byType := make(map[interfaces.CallType]*CallTypeSummary)

	for _, r := range l.records {
		s.TotalCost += r.Cost
		s.TotalPromptTokens += r.PromptTokens
		s.TotalCompletionTokens += r.CompletionTokens
		s.TotalCalls++

		entry, ok := byType[r.CallType]
		if !ok {
			entry = &CallTypeSummary{CallType: r.CallType}
			byType[r.CallType] = entry
		}
		entry.Calls++
		entry.PromptTokens += r.PromptTokens
		entry.CompletionTokens += r.CompletionTokens
		entry.TotalTokens += r.PromptTokens + r.CompletionTokens
		entry.Cost += r.Cost
	}

	s.TotalTokens = s.TotalPromptTokens + s.TotalCompletionTokens

	for _, entry := range byType {
		s.Breakdown = append(s.Breakdown, *entry)
	}
	sort.Slice(s.Breakdown, func(i, j int) bool {
		return s.Breakdown[i].CallType < s.Breakdown[j].CallType
	})

	return s
}

// Reset discards all records, keeping the ledger reusable
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}
