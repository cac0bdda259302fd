package schemas

import (
	"errors"
	"testing"

	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}
	return v
}

func TestValidateContextMetadata(t *testing.T) {
	v := newTestValidator(t)

	payload := []byte(`{
		"document_title": "BBV43 Service Manual",
		"document_id": "TI-P405-32",
		"visual_description": "Installation instructions with torque table",
		"section": "Installation",
		"content_elements": [
			{"type": "heading", "title": "3.1 Mounting"},
			{"type": "table", "element_id": "table-4-1"}
		]
	}`)

	obj, err := v.Validate(interfaces.CallTypeContext, payload)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if obj["document_id"] != "TI-P405-32" {
		t.Errorf("decoded payload lost document_id: %v", obj)
	}
}

func TestValidateRejectsMissingRequired(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name     string
		callType interfaces.CallType
		payload  string
	}{
		{"context without description", interfaces.CallTypeContext, `{"section": "Intro"}`},
		{"table without title", interfaces.CallTypeTable, `{"summary": "s", "keywords": ["k"]}`},
		{"table with empty keywords", interfaces.CallTypeTable, `{"title": "t", "summary": "s", "keywords": []}`},
		{"image without natural_description", interfaces.CallTypeImage,
			`{"image_type": "diagram", "title": "t", "summary": "s", "keywords": ["k"]}`},
		{"image with bad type", interfaces.CallTypeImage,
			`{"image_type": "photo", "title": "t", "summary": "s", "natural_description": "d", "keywords": ["k"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.callType, []byte(tt.payload))
			if err == nil {
				t.Fatal("expected validation error")
			}
			var schemaErr *models.SchemaValidationError
			if !errors.As(err, &schemaErr) {
				t.Errorf("expected SchemaValidationError, got %T: %v", err, err)
			}
			if models.IsRetryable(err) {
				t.Error("schema validation failures must not be retryable")
			}
		})
	}
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	v := newTestValidator(t)

	_, err := v.Validate(interfaces.CallTypeTable, []byte(`{"title": "unterminated`))
	var schemaErr *models.SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %v", err)
	}
}

func TestDecodeTableMetadata(t *testing.T) {
	v := newTestValidator(t)

	payload := []byte(`{
		"title": "Kv values by DN",
		"summary": "Flow coefficients for each nominal diameter.",
		"keywords": ["Kv", "DN", "flow"],
		"model_name": "BBV43",
		"related_figures": [{"label": "Fig. 2", "description": "Flow curve"}]
	}`)

	var meta models.TableMetadata
	if err := v.Decode(interfaces.CallTypeTable, payload, &meta); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if meta.Title != "Kv values by DN" || meta.ModelName != "BBV43" {
		t.Errorf("unexpected decode result: %+v", meta)
	}
	if len(meta.RelatedFigures) != 1 || meta.RelatedFigures[0].Label != "Fig. 2" {
		t.Errorf("related figures not decoded: %+v", meta.RelatedFigures)
	}
}
