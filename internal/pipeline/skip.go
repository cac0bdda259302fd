package pipeline

import (
	"github.com/ternarybob/folium/internal/common"
	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
)

// skipPolicy centralizes every skip-if-exists decision. Artifact presence is
// the only evidence of prior successful execution; there is no run journal.
type skipPolicy struct {
	store  interfaces.ArtifactStore
	config common.PipelineConfig
}

// shouldSkip reports whether a stage's work for one page is already done
// and may be reused under the configured skip flags.
func (p *skipPolicy) shouldSkip(stage Stage, page *models.Page) bool {
	switch stage {
	case StageOCR:
		return p.config.SkipOCRIfExists && p.ocrDone(page.Number)
	case StageImproveTable:
		return p.config.SkipMetadataIfExists && p.correctionDone(page)
	case StageContext:
		return p.config.SkipMetadataIfExists && p.contextDone(page.Number)
	case StageEnhance:
		return p.config.SkipMetadataIfExists && p.enhanceDone(page.Number)
	case StageTable:
		return p.config.SkipMetadataIfExists && p.tableMetadataDone(page)
	case StageImage:
		return p.config.SkipMetadataIfExists && p.imageMetadataDone(page)
	default:
		return false
	}
}

// ocrDone requires the page image and basic metadata; text is optional
// because blank pages legitimately have none.
func (p *skipPolicy) ocrDone(pageNum int) bool {
	return p.store.Exists(interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactPageImage}) &&
		p.store.Exists(interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactBasicMetadata})
}

// correctionDone holds when every table on the page either has corrected
// markup or is recorded as correction-failed. Pages without tables are
// trivially done.
func (p *skipPolicy) correctionDone(page *models.Page) bool {
	for _, table := range page.Tables {
		if table.CorrectionFailed {
			continue
		}
		ref := interfaces.ArtifactRef{Page: page.Number, Kind: models.ArtifactTableCorrected, Index: table.Index}
		if !p.store.Exists(ref) {
			return false
		}
	}
	return true
}

func (p *skipPolicy) contextDone(pageNum int) bool {
	return p.store.Exists(interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactContextMetadata})
}

// enhanceDone requires the derived flags to be present in the persisted
// context metadata, not just the file to exist.
func (p *skipPolicy) enhanceDone(pageNum int) bool {
	meta, err := p.readContext(pageNum)
	if err != nil {
		return false
	}
	return meta.Enhanced()
}

// tableMetadataDone holds when every table on the page has a metadata entry
func (p *skipPolicy) tableMetadataDone(page *models.Page) bool {
	if len(page.Tables) == 0 {
		return true
	}
	meta, err := p.readContext(page.Number)
	if err != nil {
		return false
	}
	byID := make(map[string]bool, len(meta.TableMetadata))
	for _, tm := range meta.TableMetadata {
		byID[tm.TableID] = true
	}
	for _, table := range page.Tables {
		if !byID[table.ID()] {
			return false
		}
	}
	return true
}

// imageMetadataDone holds when every figure on the page has a metadata entry
func (p *skipPolicy) imageMetadataDone(page *models.Page) bool {
	if len(page.Figures) == 0 {
		return true
	}
	meta, err := p.readContext(page.Number)
	if err != nil {
		return false
	}
	byID := make(map[string]bool, len(meta.ImageMetadata))
	for _, im := range meta.ImageMetadata {
		byID[im.ImageID] = true
	}
	for _, figure := range page.Figures {
		if !byID[figure.ID()] {
			return false
		}
	}
	return true
}

func (p *skipPolicy) readContext(pageNum int) (*models.ContextMetadata, error) {
	var meta models.ContextMetadata
	ref := interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactContextMetadata}
	if err := p.store.ReadJSON(ref, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
