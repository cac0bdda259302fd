// -----------------------------------------------------------------------
// Document Extraction Service - Enumerate a PDF into per-page artifacts
// Uses pdfcpu for document parsing and go-fitz for page rendering
// -----------------------------------------------------------------------

package extraction

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folium/internal/common"
	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
	"github.com/ternarybob/folium/internal/services/artifacts"

	_ "image/jpeg"
)

// Service implements the DocumentExtractor interface. Pages are rendered
// with go-fitz; embedded figures come from pdfcpu's image extraction.
type Service struct {
	render   common.RenderConfig
	maxPages int
	logger   arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.DocumentExtractor = (*Service)(nil)

// NewService creates a new document extraction service
func NewService(cfg *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		render:   cfg.Render,
		maxPages: cfg.Pipeline.MaxPages,
		logger:   logger,
	}
}

// PageCount returns the page count of the PDF without extracting it
func (s *Service) PageCount(ctx context.Context, pdfPath string) (int, error) {
	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return 0, &models.ExtractionError{Path: pdfPath, Err: fmt.Errorf("failed to read PDF: %w", err)}
	}
	if pdfCtx.PageCount == 0 {
		return 0, &models.ExtractionError{Path: pdfPath, Err: fmt.Errorf("document has no pages")}
	}
	return pdfCtx.PageCount, nil
}

// Extract enumerates the document and persists raw per-page artifacts.
// A nil pages slice extracts every page up to the configured cap; otherwise
// only the listed page numbers are rendered.
func (s *Service) Extract(ctx context.Context, pdfPath string, store interfaces.ArtifactStore, pages []int) (*models.Document, error) {
	pageCount, err := s.PageCount(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	if s.maxPages > 0 && pageCount > s.maxPages {
		s.logger.Info().
			Int("page_count", pageCount).
			Int("max_pages", s.maxPages).
			Msg("Capping extraction at configured page limit")
		pageCount = s.maxPages
	}

	if pages == nil {
		pages = make([]int, 0, pageCount)
		for n := 1; n <= pageCount; n++ {
			pages = append(pages, n)
		}
	}

	fitzDoc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, &models.ExtractionError{Path: pdfPath, Err: fmt.Errorf("failed to open PDF: %w", err)}
	}
	defer fitzDoc.Close()

	figures, err := s.extractFigures(pdfPath, pageCount)
	if err != nil {
		// Figure extraction failing does not invalidate the page artifacts
		s.logger.Warn().Err(err).Msg("Embedded image extraction failed, continuing without figures")
		figures = map[int][][]byte{}
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	doc := &models.Document{
		SourcePath: pdfPath,
		Name:       stem,
		Pages:      make([]*models.Page, 0, len(pages)),
	}

	for _, pageNum := range pages {
		if pageNum < 1 || pageNum > pageCount {
			return nil, &models.ExtractionError{Path: pdfPath, Err: fmt.Errorf("page %d out of range 1..%d", pageNum, pageCount)}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page, err := s.extractPage(fitzDoc, store, pageNum, figures[pageNum])
		if err != nil {
			return nil, &models.ExtractionError{Path: pdfPath, Err: fmt.Errorf("page %d: %w", pageNum, err)}
		}
		doc.Pages = append(doc.Pages, page)
	}

	s.logger.Info().
		Str("document", doc.Name).
		Int("pages", doc.PageCount()).
		Msg("Extraction complete")

	return doc, nil
}

func (s *Service) extractPage(fitzDoc *fitz.Document, store interfaces.ArtifactStore, pageNum int, figureData [][]byte) (*models.Page, error) {
	page := &models.Page{Number: pageNum}

	img, err := fitzDoc.ImageDPI(pageNum-1, s.render.DPI)
	if err != nil {
		return nil, fmt.Errorf("failed to render page image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page image: %w", err)
	}

	imageRef := interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactPageImage}
	if err := store.Write(imageRef, buf.Bytes()); err != nil {
		return nil, err
	}

	text, err := fitzDoc.Text(pageNum - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page text: %w", err)
	}
	text = strings.TrimSpace(text)

	textRef := interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactPageText}
	if text != "" {
		if err := store.Write(textRef, []byte(text)); err != nil {
			return nil, err
		}
		page.HasText = true
	}

	for i, data := range figureData {
		figure := &models.Figure{PageNumber: pageNum, Index: i + 1}
		ref := interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactFigureImage, Index: figure.Index}
		if err := store.Write(ref, data); err != nil {
			return nil, err
		}
		page.Figures = append(page.Figures, figure)
	}

	meta := models.BasicMetadata{
		PageNumber: pageNum,
		PageImage:  artifacts.FileName(imageRef),
		Tables:     []string{},
		Figures:    make([]string, 0, len(page.Figures)),
		TextBlocks: []string{},
	}
	for _, f := range page.Figures {
		meta.Figures = append(meta.Figures, f.ID())
	}
	if page.HasText {
		meta.TextBlocks = append(meta.TextBlocks, artifacts.FileName(textRef))
	}

	metaRef := interfaces.ArtifactRef{Page: pageNum, Kind: models.ArtifactBasicMetadata}
	if err := store.WriteJSON(metaRef, &meta); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("page", pageNum).
		Bool("has_text", page.HasText).
		Int("figures", len(page.Figures)).
		Msg("Page extracted")

	return page, nil
}

// extractedImagePattern matches pdfcpu's extracted image file names, which
// embed the source page number, e.g. "manual_page_12_Im3.png".
var extractedImagePattern = regexp.MustCompile(`_page_(\d+)_`)

// extractFigures pulls the embedded images out of the PDF, filters out
// icon-sized ones, and returns PNG payloads grouped by page number.
func (s *Service) extractFigures(pdfPath string, pageCount int) (map[int][][]byte, error) {
	tempDir, err := os.MkdirTemp("", "folium-images-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(pdfPath, tempDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, err
	}

	// Stable figure indices require a deterministic file order
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	figures := make(map[int][][]byte)
	for _, name := range names {
		match := extractedImagePattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		pageNum, err := strconv.Atoi(match[1])
		if err != nil || pageNum < 1 || pageNum > pageCount {
			continue
		}

		data, err := s.readFigure(filepath.Join(tempDir, name))
		if err != nil {
			s.logger.Debug().Str("file", name).Err(err).Msg("Skipping unreadable extracted image")
			continue
		}
		if data == nil {
			continue
		}

		figures[pageNum] = append(figures[pageNum], data)
	}

	return figures, nil
}

// readFigure decodes one extracted image, drops it if it is below the
// minimum figure area, and re-encodes it as PNG. Returns nil for dropped
// images.
func (s *Service) readFigure(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx()*bounds.Dy() < s.render.MinFigureArea {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
