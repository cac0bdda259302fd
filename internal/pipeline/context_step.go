package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
	"github.com/ternarybob/folium/internal/schemas"
	"github.com/ternarybob/folium/internal/services/costs"
	"github.com/ternarybob/folium/internal/services/llm"
	"github.com/ternarybob/folium/internal/services/tables"
)

// contextStep produces the per-page context metadata record from the page's
// n-1/n/n+1 window. It also reconciles the document-level fields reported by
// each page: first write wins, later disagreements are logged and dropped.
type contextStep struct {
	store     interfaces.ArtifactStore
	model     interfaces.ModelService
	validator *schemas.Validator
	ledger    *costs.Ledger
	windows   *WindowBuilder
	logger    arbor.ILogger

	mu        sync.Mutex
	docFields models.DocumentFields
}

func (s *contextStep) run(ctx context.Context, doc *models.Document, page *models.Page) error {
	window, err := s.windows.Build(doc, page.Number)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf(llm.ContextMetadataPrompt,
		windowText(window.Current),
		windowText(window.Prev),
		windowText(window.Next))

	resp, err := s.model.Invoke(ctx, &interfaces.ModelRequest{
		CallType: interfaces.CallTypeContext,
		Prompt:   prompt,
		Images:   window.Images(),
	})
	if err != nil {
		return err
	}
	s.ledger.RecordUsage(interfaces.CallTypeContext, resp.Model, resp.Usage)

	raw := []byte(tables.StripFence(resp.Text))

	var meta models.ContextMetadata
	if err := s.validator.Decode(interfaces.CallTypeContext, raw, &meta); err != nil {
		return err
	}
	meta.PageNumber = page.Number

	s.reconcile(&meta)

	ref := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactContextMetadata}
	return s.store.WriteJSON(ref, &meta)
}

// reconcile merges the page's reported document-level fields into the run's
// adopted set and rewrites the page record to the adopted values.
func (s *contextStep) reconcile(meta *models.ContextMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conflicts := s.docFields.Reconcile(&meta.DocumentFields)
	for _, c := range conflicts {
		s.logger.Warn().
			Int("page", meta.PageNumber).
			Str("field", c.Field).
			Str("retained", c.Retained).
			Str("reported", c.Reported).
			Msg("Conflicting document-level field value, keeping first")
	}
	meta.DocumentFields = s.docFields
}

// fields returns the document-level values adopted so far
func (s *contextStep) fields() models.DocumentFields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docFields
}

func windowText(wp *WindowPage) string {
	if wp == nil || wp.Text == "" {
		return "(none)"
	}
	return wp.Text
}
