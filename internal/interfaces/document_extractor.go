package interfaces

import (
	"context"

	"github.com/ternarybob/folium/internal/models"
)

// DocumentExtractor is the capability contract for the document-extraction
// collaborator. Implementations must be deterministic for a given PDF and
// extractor version, and must persist every raw artifact (page image, page
// text, table markup/images, figure images, basic metadata) through the
// ArtifactStore before returning.
//
// Extraction does not consult skip logic itself; re-running overwrites prior
// raw artifacts. Skip decisions belong to the orchestrator.
type DocumentExtractor interface {
	// PageCount returns the page count of the PDF without extracting it.
	// Unparseable documents surface as *models.ExtractionError.
	PageCount(ctx context.Context, pdfPath string) (int, error)

	// Extract enumerates the document and persists all raw per-page
	// artifacts. A nil pages slice extracts every page; otherwise only the
	// listed page numbers are extracted and returned, so partially
	// processed documents resume without re-rendering finished pages.
	// Fails with *models.ExtractionError if the document cannot be parsed
	// or has no pages.
	Extract(ctx context.Context, pdfPath string, store ArtifactStore, pages []int) (*models.Document, error)
}
