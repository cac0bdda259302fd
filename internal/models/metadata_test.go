package models

import (
	"reflect"
	"testing"
)

func TestDocumentFieldsReconcile(t *testing.T) {
	var fields DocumentFields

	conflicts := fields.Reconcile(&DocumentFields{
		DocumentTitle: "Valve Manual",
		DocumentID:    "TI-1-01",
		Models:        []string{"BBV43"},
	})
	if len(conflicts) != 0 {
		t.Fatalf("first write should not conflict, got %v", conflicts)
	}
	if fields.DocumentTitle != "Valve Manual" || fields.DocumentID != "TI-1-01" {
		t.Fatalf("first values not adopted: %+v", fields)
	}

	// later pages fill gaps but never overwrite
	conflicts = fields.Reconcile(&DocumentFields{
		DocumentTitle: "Valve Manual Rev B",
		Revision:      "B",
	})
	if fields.DocumentTitle != "Valve Manual" {
		t.Errorf("adopted value was overwritten: %q", fields.DocumentTitle)
	}
	if fields.Revision != "B" {
		t.Errorf("unset field was not adopted: %q", fields.Revision)
	}
	if len(conflicts) != 1 || conflicts[0].Field != "document_title" {
		t.Errorf("expected one document_title conflict, got %v", conflicts)
	}
	if conflicts[0].Retained != "Valve Manual" || conflicts[0].Reported != "Valve Manual Rev B" {
		t.Errorf("conflict does not carry both values: %+v", conflicts[0])
	}

	// empty incoming values are ignored, not conflicts
	conflicts = fields.Reconcile(&DocumentFields{})
	if len(conflicts) != 0 {
		t.Errorf("empty incoming fields must not conflict, got %v", conflicts)
	}

	if !reflect.DeepEqual(fields.Models, []string{"BBV43"}) {
		t.Errorf("models list changed: %v", fields.Models)
	}
}

func TestContextMetadataEnhanced(t *testing.T) {
	var meta ContextMetadata
	if meta.Enhanced() {
		t.Error("fresh metadata must not report enhanced")
	}

	meta.HasTables = Bool(false)
	if meta.Enhanced() {
		t.Error("one flag is not enough")
	}

	meta.HasFigures = Bool(true)
	if !meta.Enhanced() {
		t.Error("both flags present should report enhanced")
	}
}

func TestIdentifiers(t *testing.T) {
	table := &Table{PageNumber: 12, Index: 2}
	if table.ID() != "table-12-2" {
		t.Errorf("table ID = %q", table.ID())
	}
	figure := &Figure{PageNumber: 3, Index: 1}
	if figure.ID() != "image-3-1" {
		t.Errorf("figure ID = %q", figure.ID())
	}
}
