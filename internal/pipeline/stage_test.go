package pipeline

import (
	"reflect"
	"testing"
)

func TestParseStages(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Stage
		wantErr bool
	}{
		{"empty selects all", "", stageOrder, false},
		{"all keyword", "all", stageOrder, false},
		{"single stage", "context", []Stage{StageContext}, false},
		{"multiple stages", "ocr,table", []Stage{StageOCR, StageTable}, false},
		{"whitespace and case", " Context , ENHANCE ", []Stage{StageContext, StageEnhance}, false},
		{"duplicates collapse", "ocr,ocr", []Stage{StageOCR}, false},
		{"unknown stage", "ocr,render", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStages(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseStages(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandStages(t *testing.T) {
	tests := []struct {
		name      string
		requested []Stage
		want      []Stage
	}{
		{
			"table pulls in its chain",
			[]Stage{StageTable},
			[]Stage{StageOCR, StageImproveTable, StageContext, StageEnhance, StageTable},
		},
		{
			"image does not schedule table stages",
			[]Stage{StageImage},
			[]Stage{StageOCR, StageContext, StageEnhance, StageImage},
		},
		{
			"enhance needs context and ocr",
			[]Stage{StageEnhance},
			[]Stage{StageOCR, StageContext, StageEnhance},
		},
		{
			"ocr alone",
			[]Stage{StageOCR},
			[]Stage{StageOCR},
		},
		{
			"full set keeps execution order",
			stageOrder,
			stageOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandStages(tt.requested)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandStages(%v) = %v, want %v", tt.requested, got, tt.want)
			}
		})
	}
}

func TestStageOrderIsTopological(t *testing.T) {
	position := make(map[Stage]int, len(stageOrder))
	for i, st := range stageOrder {
		position[st] = i
	}

	for st, deps := range stageDeps {
		for _, dep := range deps {
			if position[dep] >= position[st] {
				t.Errorf("dependency %s is not ordered before %s", dep, st)
			}
		}
	}
}
