package pipeline

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
	"github.com/ternarybob/folium/internal/services/costs"
	"github.com/ternarybob/folium/internal/services/llm"
	"github.com/ternarybob/folium/internal/services/tables"
)

// improveTableStep asks the model for visually-corrected markup for each
// table on a page. Corrected markup is written as its own artifact and, once
// present, supersedes the raw markup for every later consumer; it is never
// reverted. A correction whose output cannot be parsed marks the table
// correction-failed and keeps the raw markup authoritative.
type improveTableStep struct {
	store  interfaces.ArtifactStore
	model  interfaces.ModelService
	ledger *costs.Ledger
	logger arbor.ILogger
}

func (s *improveTableStep) run(ctx context.Context, doc *models.Document, page *models.Page) error {
	for _, table := range page.Tables {
		if table.CorrectionFailed {
			continue
		}
		correctedRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactTableCorrected, Index: table.Index}
		if s.store.Exists(correctedRef) {
			continue
		}

		if err := s.correctTable(ctx, page, table, correctedRef); err != nil {
			return err
		}
	}
	return nil
}

func (s *improveTableStep) correctTable(ctx context.Context, page *models.Page, table *models.Table, correctedRef interfaces.ArtifactRef) error {
	rawRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactTableRaw, Index: table.Index}
	markup, err := s.store.Read(rawRef)
	if err != nil {
		return fmt.Errorf("raw markup missing for %s: %w", table.ID(), err)
	}

	req := &interfaces.ModelRequest{
		CallType: interfaces.CallTypeTableCorrection,
		Prompt:   fmt.Sprintf(llm.ImproveTableStructurePrompt, string(markup)),
	}

	imageRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactTableImage, Index: table.Index}
	if s.store.Exists(imageRef) {
		img, err := s.store.Read(imageRef)
		if err != nil {
			return err
		}
		req.Images = []interfaces.ImageAttachment{{
			Name:     table.ID() + ".png",
			MIMEType: "image/png",
			Data:     img,
		}}
	}

	resp, err := s.model.Invoke(ctx, req)
	if err != nil {
		return err
	}
	s.ledger.RecordUsage(interfaces.CallTypeTableCorrection, resp.Model, resp.Usage)

	corrected := tables.StripFence(resp.Text)
	dims, err := tables.Validate(corrected)
	if err != nil {
		s.logger.Warn().
			Str("table", table.ID()).
			Err(err).
			Msg("Corrected markup is not parseable, keeping raw markup")
		return s.markCorrectionFailed(page, table)
	}

	if err := s.store.Write(correctedRef, []byte(corrected)); err != nil {
		return err
	}

	s.logger.Debug().
		Str("table", table.ID()).
		Int("rows", dims.Rows).
		Int("columns", dims.Columns).
		Msg("Table structure corrected")

	return nil
}

// markCorrectionFailed records the failure on the in-memory table and in the
// page's basic metadata so later runs do not retry it.
func (s *improveTableStep) markCorrectionFailed(page *models.Page, table *models.Table) error {
	table.CorrectionFailed = true

	var basic models.BasicMetadata
	basicRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactBasicMetadata}
	if err := s.store.ReadJSON(basicRef, &basic); err != nil {
		return err
	}

	for _, id := range basic.CorrectionFailed {
		if id == table.ID() {
			return nil
		}
	}
	basic.CorrectionFailed = append(basic.CorrectionFailed, table.ID())

	return s.store.WriteJSON(basicRef, &basic)
}
