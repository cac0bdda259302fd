package pipeline

import (
	"fmt"

	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
)

// WindowPage is one page's contribution to a context window: its rendered
// image and extracted text, when present.
type WindowPage struct {
	Number int
	Image  []byte
	Text   string
}

// Window is the n-1, n, n+1 page neighbourhood handed to the context stage.
// Prev and Next are nil at document boundaries.
type Window struct {
	Prev    *WindowPage
	Current *WindowPage
	Next    *WindowPage
}

// Images returns the window's page images in reading order, labelled for
// attachment. The current page is always present.
func (w *Window) Images() []interfaces.ImageAttachment {
	var out []interfaces.ImageAttachment
	for _, wp := range []*WindowPage{w.Prev, w.Current, w.Next} {
		if wp == nil || len(wp.Image) == 0 {
			continue
		}
		out = append(out, interfaces.ImageAttachment{
			Name:     fmt.Sprintf("page_%d_full.png", wp.Number),
			MIMEType: "image/png",
			Data:     wp.Image,
		})
	}
	return out
}

// WindowBuilder assembles context windows from persisted page artifacts
type WindowBuilder struct {
	store interfaces.ArtifactStore
}

// NewWindowBuilder creates a window builder reading from the given store
func NewWindowBuilder(store interfaces.ArtifactStore) *WindowBuilder {
	return &WindowBuilder{store: store}
}

// Build returns the window around page n. Neighbours whose artifacts are
// absent (boundary pages, never-extracted pages) are left nil; the current
// page's image must exist.
func (b *WindowBuilder) Build(doc *models.Document, pageNum int) (*Window, error) {
	current, err := b.load(pageNum, true)
	if err != nil {
		return nil, err
	}

	w := &Window{Current: current}
	if doc.Page(pageNum-1) != nil {
		w.Prev, _ = b.load(pageNum-1, false)
	}
	if doc.Page(pageNum+1) != nil {
		w.Next, _ = b.load(pageNum+1, false)
	}
	return w, nil
}

// load reads one page's image and text. When required is false a missing
// page image yields (nil, nil) so the window simply shrinks.
func (b *WindowBuilder) load(pageNum int, required bool) (*WindowPage, error) {
	imageRef := interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactPageImage}
	if !b.store.Exists(imageRef) {
		if required {
			return nil, &models.DependencyError{
				Stage:      string(StageContext),
				Dependency: string(StageOCR),
				Reason:     "page image artifact is missing",
			}
		}
		return nil, nil
	}

	img, err := b.store.Read(imageRef)
	if err != nil {
		if required {
			return nil, err
		}
		return nil, nil
	}

	wp := &WindowPage{Number: pageNum, Image: img}

	textRef := interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactPageText}
	if b.store.Exists(textRef) {
		if text, err := b.store.Read(textRef); err == nil {
			wp.Text = string(text)
		}
	}

	return wp, nil
}
