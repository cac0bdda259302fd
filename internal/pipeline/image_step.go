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

// imageStep generates retrieval metadata for each extracted figure on a
// page and enriches the matching figure content elements in place. Gated on
// the enhance step's has_figures flag.
type imageStep struct {
	store     interfaces.ArtifactStore
	model     interfaces.ModelService
	validator *schemas.Validator
	ledger    *costs.Ledger
	logger    arbor.ILogger
}

func (s *imageStep) run(ctx context.Context, doc *models.Document, page *models.Page) error {
	var meta models.ContextMetadata
	contextRef := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactContextMetadata}
	if err := s.store.ReadJSON(contextRef, &meta); err != nil {
		return fmt.Errorf("context metadata missing for page %d: %w", page.Number, err)
	}

	if !meta.Enhanced() {
		return fmt.Errorf("page %d context metadata has no derived flags", page.Number)
	}
	if !*meta.HasFigures {
		return nil
	}

	existing := make(map[string]bool, len(meta.ImageMetadata))
	for _, im := range meta.ImageMetadata {
		existing[im.ImageID] = true
	}

	pageText := s.pageText(page.Number)

	changed := false
	for i, figure := range page.Figures {
		if existing[figure.ID()] {
			continue
		}

		im, err := s.describeFigure(ctx, figure, pageText)
		if err != nil {
			return err
		}
		meta.ImageMetadata = append(meta.ImageMetadata, *im)
		enrichFigureElement(&meta, i, im)
		changed = true
	}

	if !changed {
		return nil
	}
	return s.store.WriteJSON(contextRef, &meta)
}

func (s *imageStep) describeFigure(ctx context.Context, figure *models.Figure, pageText string) (*models.ImageMetadata, error) {
	imageRef := interfaces.ArtifactRef{Page: figure.PageNumber, Kind: models.ArtifactFigureImage, Index: figure.Index}
	img, err := s.store.Read(imageRef)
	if err != nil {
		return nil, fmt.Errorf("figure image missing for %s: %w", figure.ID(), err)
	}

	resp, err := s.model.Invoke(ctx, &interfaces.ModelRequest{
		CallType: interfaces.CallTypeImage,
		Prompt:   fmt.Sprintf(llm.ImageMetadataPrompt, pageText),
		Images: []interfaces.ImageAttachment{{
			Name:     figure.ID() + ".png",
			MIMEType: "image/png",
			Data:     img,
		}},
	})
	if err != nil {
		return nil, err
	}
	s.ledger.RecordUsage(interfaces.CallTypeImage, resp.Model, resp.Usage)

	raw := []byte(tables.StripFence(resp.Text))

	var im models.ImageMetadata
	if err := s.validator.Decode(interfaces.CallTypeImage, raw, &im); err != nil {
		return nil, err
	}

	im.ImageID = figure.ID()
	im.ImageFile = artifacts.FileName(imageRef)

	return &im, nil
}

func (s *imageStep) pageText(pageNum int) string {
	ref := interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactPageText}
	if !s.store.Exists(ref) {
		return "(none)"
	}
	text, err := s.store.Read(ref)
	if err != nil || len(text) == 0 {
		return "(none)"
	}
	return string(text)
}

// enrichFigureElement copies the image metadata onto the n-th figure-typed
// content element, matching figures to elements by position on the page.
func enrichFigureElement(meta *models.ContextMetadata, figureOrdinal int, im *models.ImageMetadata) {
	seen := 0
	for i := range meta.ContentElements {
		el := &meta.ContentElements[i]
		if el.Type != "figure" {
			continue
		}
		if seen != figureOrdinal {
			seen++
			continue
		}

		el.ImageType = im.ImageType
		el.NaturalDescription = im.NaturalDescription
		el.Dates = im.Dates
		el.Locations = im.Locations
		el.ModelName = im.ModelName
		el.ComponentType = im.ComponentType
		el.ModelApplicability = im.ModelApplicability
		el.ApplicationContext = im.ApplicationContext
		el.RelatedTables = im.RelatedTables
		if el.Title == "" {
			el.Title = im.Title
		}
		if el.Summary == "" {
			el.Summary = im.Summary
		}
		if len(el.Keywords) == 0 {
			el.Keywords = im.Keywords
		}
		if el.ElementID == "" {
			el.ElementID = im.ImageID
		}
		return
	}
}
