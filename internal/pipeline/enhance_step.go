package pipeline

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
)

// enhanceStep stamps the derived content flags onto the page's context
// metadata from the extraction stage's basic metadata. It makes no model
// calls; the flags gate the table and image stages.
type enhanceStep struct {
	store  interfaces.ArtifactStore
	logger arbor.ILogger
}

func (s *enhanceStep) run(ctx context.Context, doc *models.Document, page *models.Page) error {
	var basic models.BasicMetadata
	basicRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactBasicMetadata}
	if err := s.store.ReadJSON(basicRef, &basic); err != nil {
		return fmt.Errorf("basic metadata missing for page %d: %w", page.Number, err)
	}

	var meta models.ContextMetadata
	contextRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactContextMetadata}
	if err := s.store.ReadJSON(contextRef, &meta); err != nil {
		return fmt.Errorf("context metadata missing for page %d: %w", page.Number, err)
	}

	meta.HasTables = models.Bool(len(basic.Tables) > 0)
	meta.HasFigures = models.Bool(len(basic.Figures) > 0)
	meta.HasTextBlocks = models.Bool(len(basic.TextBlocks) > 0)
	meta.TableCount = len(basic.Tables)
	meta.FigureCount = len(basic.Figures)
	meta.ContentSummary = &models.ContentSummary{
		Tables:     basic.Tables,
		Figures:    basic.Figures,
		TextBlocks: basic.TextBlocks,
	}

	s.logger.Debug().
		Int("page", page.Number).
		Bool("has_tables", *meta.HasTables).
		Bool("has_figures", *meta.HasFigures).
		Msg("Enhanced context metadata")

	return s.store.WriteJSON(contextRef, &meta)
}
