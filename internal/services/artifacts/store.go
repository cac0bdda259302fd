// -----------------------------------------------------------------------
// Artifact Store - Filesystem-backed per-page artifact persistence
// -----------------------------------------------------------------------

package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
)

// Store implements interfaces.ArtifactStore on the local filesystem, rooted
// at one document's output directory.
type Store struct {
	root   string
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.ArtifactStore = (*Store)(nil)

// NewStore creates a store rooted at the document's artifact directory,
// creating it if needed.
func NewStore(root string, logger arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root %s: %w", root, err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the document's artifact root directory
func (s *Store) Root() string {
	return s.root
}

// Path returns the absolute path for an artifact ref
func (s *Store) Path(ref interfaces.ArtifactRef) string {
	rel, err := relPath(ref)
	if err != nil {
		return ""
	}
	return filepath.Join(s.root, rel)
}

// Exists reports whether the artifact has been persisted
func (s *Store) Exists(ref interfaces.ArtifactRef) bool {
	path := s.Path(ref)
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Read returns the artifact payload
func (s *Store) Read(ref interfaces.ArtifactRef) ([]byte, error) {
	path := s.Path(ref)
	if path == "" {
		return nil, fmt.Errorf("unknown artifact kind: %s", ref.Kind)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s page %d: %w", ref.Kind, ref.Page, err)
	}
	return data, nil
}

// ReadJSON unmarshals a JSON artifact into v
func (s *Store) ReadJSON(ref interfaces.ArtifactRef, v interface{}) error {
	data, err := s.Read(ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode artifact %s page %d: %w", ref.Kind, ref.Page, err)
	}
	return nil
}

// Write persists the payload atomically: the bytes land in a temp file in
// the target directory, then rename over the final path. A concurrent reader
// of the same key never observes a partial file.
func (s *Store) Write(ref interfaces.ArtifactRef, data []byte) error {
	path := s.Path(ref)
	if path == "" {
		return fmt.Errorf("unknown artifact kind: %s", ref.Kind)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact %s page %d: %w", ref.Kind, ref.Page, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s page %d: %w", ref.Kind, ref.Page, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize artifact %s page %d: %w", ref.Kind, ref.Page, err)
	}

	s.logger.Debug().
		Str("kind", string(ref.Kind)).
		Int("page", ref.Page).
		Int("bytes", len(data)).
		Msg("Artifact written")

	return nil
}

// WriteJSON marshals v with indentation and persists it atomically
func (s *Store) WriteJSON(ref interfaces.ArtifactRef, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact %s page %d: %w", ref.Kind, ref.Page, err)
	}
	return s.Write(ref, data)
}

// PageNumbers lists the page directories present under the root, ascending
func (s *Store) PageNumbers() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifact root %s: %w", s.root, err)
	}

	var pages []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(entry.Name(), "page_%d", &n); err == nil && n > 0 {
			pages = append(pages, n)
		}
	}
	sort.Ints(pages)
	return pages, nil
}

// LoadDocument rebuilds a Document from persisted basic metadata, for runs
// where the extraction stage is skipped or excluded.
func LoadDocument(store interfaces.ArtifactStore, sourcePath, name string) (*models.Document, error) {
	pages, err := store.PageNumbers()
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page artifacts found under %s", store.Root())
	}

	doc := &models.Document{SourcePath: sourcePath, Name: name}
	for _, n := range pages {
		page, err := LoadPage(store, n)
		if err != nil {
			return nil, err
		}
		doc.Pages = append(doc.Pages, page)
	}

	return doc, nil
}

// LoadPage rebuilds one page from its persisted basic metadata
func LoadPage(store interfaces.ArtifactStore, n int) (*models.Page, error) {
	var basic models.BasicMetadata
	ref := interfaces.ArtifactRef{Page: n, Kind: models.ArtifactBasicMetadata}
	if err := store.ReadJSON(ref, &basic); err != nil {
		return nil, fmt.Errorf("failed to load basic metadata for page %d: %w", n, err)
	}

	page := &models.Page{
		Number:  n,
		HasText: len(basic.TextBlocks) > 0,
	}
	failed := make(map[string]bool, len(basic.CorrectionFailed))
	for _, id := range basic.CorrectionFailed {
		failed[id] = true
	}
	for i := range basic.Tables {
		page.Tables = append(page.Tables, &models.Table{
			PageNumber:       n,
			Index:            i + 1,
			CorrectionFailed: failed[models.TableID(n, i+1)],
		})
	}
	for i := range basic.Figures {
		page.Figures = append(page.Figures, &models.Figure{PageNumber: n, Index: i + 1})
	}
	return page, nil
}
