package artifacts

import (
	"fmt"
	"path/filepath"

	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
)

// On-disk layout, per document root:
//
//	page_N/
//	  page_N_full.png
//	  metadata_page_N.json
//	  context_metadata_page_N.json
//	  text/page_N_text.txt
//	  tables/table-N-i.html
//	  tables/table-N-i.corrected.html
//	  tables/table-N-i.png
//	  images/image-N-i.png
//
// This layout is the store's persistence contract; skip logic depends on it
// staying stable across runs.

// PageDir returns the directory name for a page
func PageDir(page int) string {
	return fmt.Sprintf("page_%d", page)
}

// relPath maps an artifact ref to its path relative to the document root
func relPath(ref interfaces.ArtifactRef) (string, error) {
	dir := PageDir(ref.Page)

	switch ref.Kind {
	case models.ArtifactPageImage:
		return filepath.Join(dir, fmt.Sprintf("page_%d_full.png", ref.Page)), nil
	case models.ArtifactPageText:
		return filepath.Join(dir, "text", fmt.Sprintf("page_%d_text.txt", ref.Page)), nil
	case models.ArtifactBasicMetadata:
		return filepath.Join(dir, fmt.Sprintf("metadata_page_%d.json", ref.Page)), nil
	case models.ArtifactContextMetadata:
		return filepath.Join(dir, fmt.Sprintf("context_metadata_page_%d.json", ref.Page)), nil
	case models.ArtifactTableRaw:
		return filepath.Join(dir, "tables", models.TableID(ref.Page, ref.Index)+".html"), nil
	case models.ArtifactTableCorrected:
		return filepath.Join(dir, "tables", models.TableID(ref.Page, ref.Index)+".corrected.html"), nil
	case models.ArtifactTableImage:
		return filepath.Join(dir, "tables", models.TableID(ref.Page, ref.Index)+".png"), nil
	case models.ArtifactFigureImage:
		return filepath.Join(dir, "images", models.FigureID(ref.Page, ref.Index)+".png"), nil
	default:
		return "", fmt.Errorf("unknown artifact kind: %s", ref.Kind)
	}
}

// FileName returns the bare file name an artifact ref maps to
func FileName(ref interfaces.ArtifactRef) string {
	rel, err := relPath(ref)
	if err != nil {
		return ""
	}
	return filepath.Base(rel)
}
