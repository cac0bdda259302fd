package pipeline

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
	"github.com/ternarybob/folium/internal/schemas"
	"github.com/ternarybob/folium/internal/services/artifacts"
	"github.com/ternarybob/folium/internal/services/costs"
	"github.com/ternarybob/folium/internal/services/llm"
	"github.com/ternarybob/folium/internal/services/tables"
)

// tableStep generates retrieval metadata for each table on a page, consuming
// the corrected markup when a correction exists. It is gated on the enhance
// step's has_tables flag: pages without tables make no model calls.
type tableStep struct {
	store     interfaces.ArtifactStore
	model     interfaces.ModelService
	validator *schemas.Validator
	ledger    *costs.Ledger
	logger    arbor.ILogger
}

func (s *tableStep) run(ctx context.Context, doc *models.Document, page *models.Page) error {
	var meta models.ContextMetadata
	contextRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactContextMetadata}
	if err := s.store.ReadJSON(contextRef, &meta); err != nil {
		return fmt.Errorf("context metadata missing for page %d: %w", page.Number, err)
	}

	if !meta.Enhanced() {
		return fmt.Errorf("page %d context metadata has no derived flags", page.Number)
	}
	if !*meta.HasTables {
		return nil
	}

	existing := make(map[string]bool, len(meta.TableMetadata))
	for _, tm := range meta.TableMetadata {
		existing[tm.TableID] = true
	}

	changed := false
	for _, table := range page.Tables {
		if existing[table.ID()] {
			continue
		}

		tm, err := s.describeTable(ctx, page, table)
		if err != nil {
			return err
		}
		meta.TableMetadata = append(meta.TableMetadata, *tm)
		changed = true
	}

	if !changed {
		return nil
	}
	return s.store.WriteJSON(contextRef, &meta)
}

func (s *tableStep) describeTable(ctx context.Context, page *models.Page, table *models.Table) (*models.TableMetadata, error) {
	markupRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactTableCorrected, Index: table.Index}
	if !s.store.Exists(markupRef) {
		markupRef = interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactTableRaw, Index: table.Index}
	}
	markup, err := s.store.Read(markupRef)
	if err != nil {
		return nil, fmt.Errorf("markup missing for %s: %w", table.ID(), err)
	}

	req := &interfaces.ModelRequest{
		CallType: interfaces.CallTypeTable,
		Prompt:   fmt.Sprintf(llm.TableMetadataPrompt, string(markup)),
	}

	imageRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactTableImage, Index: table.Index}
	if s.store.Exists(imageRef) {
		img, err := s.store.Read(imageRef)
		if err != nil {
			return nil, err
		}
		req.Images = []interfaces.ImageAttachment{{
			Name:     table.ID() + ".png",
			MIMEType: "image/png",
			Data:     img,
		}}
	}

	resp, err := s.model.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	s.ledger.RecordUsage(interfaces.CallTypeTable, resp.Model, resp.Usage)

	raw := []byte(tables.StripFence(resp.Text))

	var tm models.TableMetadata
	if err := s.validator.Decode(interfaces.CallTypeTable, raw, &tm); err != nil {
		return nil, err
	}

	tm.TableID = table.ID()
	tm.TableFile = artifacts.FileName(markupRef)
	tm.TableHTML = string(markup)
	tm.CorrectionFailed = table.CorrectionFailed
	if s.store.Exists(imageRef) {
		tm.TableImage = artifacts.FileName(imageRef)
	}

	if text, err := tables.Flatten(string(markup)); err == nil {
		tm.TableText = text
	} else {
		s.logger.Debug().Str("table", table.ID()).Err(err).Msg("Could not flatten table markup")
	}

	return &tm, nil
}
