package pipeline

import (
	"fmt"
	"strings"
)

// Stage identifies one pipeline stage. Stages run in a fixed order with a
// barrier between them; within a stage, pages run concurrently.
type Stage string

const (
	StageOCR          Stage = "ocr"
	StageImproveTable Stage = "improve_table"
	StageContext      Stage = "context"
	StageEnhance      Stage = "enhance"
	StageTable        Stage = "table"
	StageImage        Stage = "image"
)

// stageOrder is the execution order. It is a valid topological order of
// stageDeps and never changes.
var stageOrder = []Stage{
	StageOCR,
	StageImproveTable,
	StageContext,
	StageEnhance,
	StageTable,
	StageImage,
}

// stageDeps is the static dependency graph. A stage's dependencies must
// have run (or their outputs must already exist) before it starts.
var stageDeps = map[Stage][]Stage{
	StageOCR:          {},
	StageImproveTable: {StageOCR},
	StageContext:      {StageOCR},
	StageEnhance:      {StageContext},
	StageTable:        {StageImproveTable, StageEnhance},
	StageImage:        {StageEnhance},
}

// ParseStages parses a comma-separated stage selection. Empty or "all"
// selects every stage.
func ParseStages(s string) ([]Stage, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return append([]Stage(nil), stageOrder...), nil
	}

	known := make(map[Stage]bool, len(stageOrder))
	for _, st := range stageOrder {
		known[st] = true
	}

	var selected []Stage
	seen := make(map[Stage]bool)
	for _, part := range strings.Split(s, ",") {
		st := Stage(strings.TrimSpace(part))
		if !known[st] {
			return nil, fmt.Errorf("unknown stage %q", st)
		}
		if !seen[st] {
			seen[st] = true
			selected = append(selected, st)
		}
	}
	return selected, nil
}

// ExpandStages closes the selection over stageDeps and returns it in
// execution order. Requesting "table" alone therefore also schedules ocr,
// improve_table, context and enhance.
func ExpandStages(requested []Stage) []Stage {
	include := make(map[Stage]bool)

	var add func(st Stage)
	add = func(st Stage) {
		if include[st] {
			return
		}
		include[st] = true
		for _, dep := range stageDeps[st] {
			add(dep)
		}
	}
	for _, st := range requested {
		add(st)
	}

	var ordered []Stage
	for _, st := range stageOrder {
		if include[st] {
			ordered = append(ordered, st)
		}
	}
	return ordered
}

// Dependencies returns the direct dependencies of a stage
func Dependencies(st Stage) []Stage {
	return append([]Stage(nil), stageDeps[st]...)
}
