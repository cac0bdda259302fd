package models

import "fmt"

// ArtifactKind identifies a persisted per-page artifact. The set is closed;
// skip decisions and the on-disk layout are both keyed by it.
type ArtifactKind string

const (
	ArtifactPageImage       ArtifactKind = "page_image"
	ArtifactPageText        ArtifactKind = "page_text"
	ArtifactTableRaw        ArtifactKind = "table_raw"
	ArtifactTableCorrected  ArtifactKind = "table_corrected"
	ArtifactTableImage      ArtifactKind = "table_image"
	ArtifactFigureImage     ArtifactKind = "figure_image"
	ArtifactBasicMetadata   ArtifactKind = "basic_metadata"
	ArtifactContextMetadata ArtifactKind = "context_metadata"
)

// Document represents one source PDF and its ordered pages. Pages are
// enumerated once at pipeline start and never reordered.
type Document struct {
	// SourcePath is the path of the source PDF
	SourcePath string `json:"source_path"`

	// Name is the PDF file stem, used as the artifact root directory name
	Name string `json:"name"`

	// Pages in ascending page-number order, 1..N
	Pages []*Page `json:"pages"`
}

// PageCount returns the number of enumerated pages
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Page returns the page with the given 1-based number, or nil
func (d *Document) Page(number int) *Page {
	for _, p := range d.Pages {
		if p.Number == number {
			return p
		}
	}
	return nil
}

// Page holds one page's extracted entities. Tables and Figures are created
// by the extraction stage and only ever annotated afterwards.
type Page struct {
	Number  int       `json:"number"`
	Tables  []*Table  `json:"tables,omitempty"`
	Figures []*Figure `json:"figures,omitempty"`

	// HasText reports whether extraction produced a text artifact for the page
	HasText bool `json:"has_text"`
}

// Table is identified by (page_number, index), 1-based within the page.
// Raw markup comes from extraction; corrected markup, once written,
// supersedes it for every later consumer and is never reverted.
type Table struct {
	PageNumber int `json:"page_number"`
	Index      int `json:"index"`

	// CorrectionFailed is set when the correction stage could not produce
	// parseable markup; the raw markup stays authoritative for this table.
	CorrectionFailed bool `json:"correction_failed,omitempty"`
}

// ID returns the stable table identifier, e.g. "table-12-1"
func (t *Table) ID() string {
	return TableID(t.PageNumber, t.Index)
}

// TableID formats the identifier for a table at (page, index)
func TableID(page, index int) string {
	return fmt.Sprintf("table-%d-%d", page, index)
}

// Figure is identified by (page_number, index), 1-based within the page
type Figure struct {
	PageNumber int `json:"page_number"`
	Index      int `json:"index"`
}

// ID returns the stable figure identifier, e.g. "image-12-1"
func (f *Figure) ID() string {
	return FigureID(f.PageNumber, f.Index)
}

// FigureID formats the identifier for a figure at (page, index)
func FigureID(page, index int) string {
	return fmt.Sprintf("image-%d-%d", page, index)
}
