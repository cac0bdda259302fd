package interfaces

import "github.com/ternarybob/folium/internal/models"

// ArtifactRef addresses one persisted artifact within a document's output
// tree. Index is only meaningful for table/figure kinds and is 1-based.
type ArtifactRef struct {
	Page  int
	Kind  models.ArtifactKind
	Index int
}

// ArtifactStore is the filesystem-shaped key-value layer for per-page
// artifacts. The on-disk layout is a stable contract: skip-if-exists logic
// treats artifact presence as proof of prior successful execution, so the
// mapping from ArtifactRef to path must not change across runs.
//
// Write is the only externally observable mutation and must be atomic with
// respect to a concurrent reader of the same key (write-to-temp-then-rename).
type ArtifactStore interface {
	// Exists reports whether the artifact has been persisted
	Exists(ref ArtifactRef) bool

	// Read returns the artifact payload
	Read(ref ArtifactRef) ([]byte, error)

	// ReadJSON unmarshals a JSON artifact into v
	ReadJSON(ref ArtifactRef, v interface{}) error

	// Write persists the payload atomically, overwriting any prior value
	Write(ref ArtifactRef, data []byte) error

	// WriteJSON marshals v and persists it atomically
	WriteJSON(ref ArtifactRef, v interface{}) error

	// Path returns the absolute path the ref maps to. Callers may hand the
	// path to external tooling but must not write through it.
	Path(ref ArtifactRef) string

	// PageNumbers lists the page directories present, ascending
	PageNumbers() ([]int, error)

	// Root returns the document's artifact root directory
	Root() string
}
