package models

// BasicMetadata is the per-page record the extraction stage writes. It lists
// the artifacts that exist for the page and is the input to the enhance step.
type BasicMetadata struct {
	PageNumber int      `json:"page_number"`
	PageImage  string   `json:"page_image"`
	Tables     []string `json:"tables"`
	Figures    []string `json:"figures"`
	TextBlocks []string `json:"text_blocks"`

	// CorrectionFailed lists table IDs whose structure correction did not
	// produce parseable markup; those tables keep their raw markup.
	CorrectionFailed []string `json:"correction_failed,omitempty"`
}

// DocumentFields are the document-level context metadata fields. They are
// expected to be constant across a document and are reconciled
// first-write-wins: a conflicting value from a later page is logged and
// discarded, never silently adopted mid-document.
type DocumentFields struct {
	DocumentTitle string   `json:"document_title,omitempty"`
	DocumentID    string   `json:"document_id,omitempty"`
	Revision      string   `json:"revision,omitempty"`
	Manufacturer  string   `json:"manufacturer,omitempty"`
	Models        []string `json:"models,omitempty"`
}

// Empty reports whether no document-level field has been adopted yet
func (f *DocumentFields) Empty() bool {
	return f.DocumentTitle == "" && f.DocumentID == "" && f.Revision == "" &&
		f.Manufacturer == "" && len(f.Models) == 0
}

// FieldConflict describes a document-level value a later page disagreed on
type FieldConflict struct {
	Field    string
	Retained string
	Reported string
}

// Reconcile merges incoming document-level fields into f. Unset fields in f
// adopt the incoming value; set fields keep their value and any disagreement
// is returned for logging.
func (f *DocumentFields) Reconcile(incoming *DocumentFields) []FieldConflict {
	var conflicts []FieldConflict

	merge := func(field string, current *string, reported string) {
		if reported == "" {
			return
		}
		if *current == "" {
			*current = reported
			return
		}
		if *current != reported {
			conflicts = append(conflicts, FieldConflict{Field: field, Retained: *current, Reported: reported})
		}
	}

	merge("document_title", &f.DocumentTitle, incoming.DocumentTitle)
	merge("document_id", &f.DocumentID, incoming.DocumentID)
	merge("revision", &f.Revision, incoming.Revision)
	merge("manufacturer", &f.Manufacturer, incoming.Manufacturer)

	if len(f.Models) == 0 {
		f.Models = append(f.Models, incoming.Models...)
	}

	return conflicts
}

// ContextMetadata is the per-page structured record produced by the context
// stage and grown by the enhance, table and image stages. It is persisted as
// one JSON file per page.
type ContextMetadata struct {
	DocumentFields

	PageNumber        int              `json:"page_number"`
	VisualDescription string           `json:"visual_description"`
	Section           string           `json:"section,omitempty"`
	ContentElements   []ContentElement `json:"content_elements,omitempty"`

	// Derived flags, computed by the enhance step from the page's extracted
	// table/figure sets. Pointer-typed so presence in the JSON doubles as
	// the "enhance has run" marker for skip decisions.
	HasTables     *bool `json:"has_tables,omitempty"`
	HasFigures    *bool `json:"has_figures,omitempty"`
	HasTextBlocks *bool `json:"has_text_blocks,omitempty"`
	TableCount    int   `json:"table_count,omitempty"`
	FigureCount   int   `json:"figure_count,omitempty"`

	ContentSummary *ContentSummary `json:"content_summary,omitempty"`

	// Sub-stage aggregates, keyed by table/figure identifiers
	TableMetadata []TableMetadata `json:"table_metadata,omitempty"`
	ImageMetadata []ImageMetadata `json:"image_metadata,omitempty"`
}

// Enhanced reports whether the enhance step has stamped the derived flags
func (m *ContextMetadata) Enhanced() bool {
	return m.HasTables != nil && m.HasFigures != nil
}

// ContentSummary lists the artifact identifiers present on the page
type ContentSummary struct {
	Tables     []string `json:"tables"`
	Figures    []string `json:"figures"`
	TextBlocks []string `json:"text_blocks"`
}

// ContentElement is one page-level content item identified by the context
// stage (heading, paragraph, table, figure). Figure elements are later
// enriched in place by the image stage.
type ContentElement struct {
	Type      string   `json:"type"`
	ElementID string   `json:"element_id,omitempty"`
	Title     string   `json:"title,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Entities  []string `json:"entities,omitempty"`

	// Filled by the image stage for figure elements
	ImageType          string       `json:"image_type,omitempty"`
	NaturalDescription string       `json:"natural_description,omitempty"`
	Dates              []string     `json:"dates,omitempty"`
	Locations          []string     `json:"locations,omitempty"`
	ModelName          string       `json:"model_name,omitempty"`
	ComponentType      string       `json:"component_type,omitempty"`
	ModelApplicability []string     `json:"model_applicability,omitempty"`
	ApplicationContext []string     `json:"application_context,omitempty"`
	RelatedTables      []RelatedRef `json:"related_tables,omitempty"`
}

// RelatedRef is a cross-reference to a labelled table or figure nearby
type RelatedRef struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// TableMetadata is the structured record the table stage produces for one
// table, generated from the corrected markup when a correction exists.
type TableMetadata struct {
	TableID    string `json:"table_id"`
	TableFile  string `json:"table_file"`
	TableImage string `json:"table_image"`

	// TableHTML is the markup the metadata call actually consumed
	// (corrected when available, raw otherwise).
	TableHTML string `json:"table_html"`

	// TableText is a flattened plain-text rendering of the markup for
	// retrieval indexing.
	TableText string `json:"table_text,omitempty"`

	CorrectionFailed bool `json:"correction_failed,omitempty"`

	Title              string       `json:"title"`
	Summary            string       `json:"summary"`
	Keywords           []string     `json:"keywords"`
	Dates              []string     `json:"dates,omitempty"`
	Locations          []string     `json:"locations,omitempty"`
	Entities           []string     `json:"entities,omitempty"`
	ModelName          string       `json:"model_name,omitempty"`
	ComponentType      string       `json:"component_type,omitempty"`
	ApplicationContext []string     `json:"application_context,omitempty"`
	RelatedFigures     []RelatedRef `json:"related_figures,omitempty"`
}

// ImageMetadata is the structured record the image stage produces for one
// extracted figure.
type ImageMetadata struct {
	ImageID   string `json:"image_id"`
	ImageFile string `json:"image_file"`

	ImageType          string       `json:"image_type"`
	Title              string       `json:"title"`
	Summary            string       `json:"summary"`
	NaturalDescription string       `json:"natural_description"`
	Keywords           []string     `json:"keywords"`
	Dates              []string     `json:"dates,omitempty"`
	Locations          []string     `json:"locations,omitempty"`
	Entities           []string     `json:"entities,omitempty"`
	ModelName          string       `json:"model_name,omitempty"`
	ComponentType      string       `json:"component_type,omitempty"`
	ModelApplicability []string     `json:"model_applicability,omitempty"`
	ApplicationContext []string     `json:"application_context,omitempty"`
	RelatedTables      []RelatedRef `json:"related_tables,omitempty"`
}

// Bool returns a pointer to b, for the flag fields above
func Bool(b bool) *bool {
	return &b
}
