package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ternarybob/folium/internal/common"
	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
	"github.com/ternarybob/folium/internal/services/artifacts"
	"github.com/ternarybob/folium/internal/services/costs"
)

const (
	testRawMarkup       = `<table><tr><th>Size</th><th>Weight</th></tr><tr><td>DN15</td><td>1.2</td></tr></table>`
	testCorrectedMarkup = `<table><tr><th>Size</th><th>Weight kg</th></tr><tr><td>DN15</td><td>1.2</td></tr></table>`

	testContextJSON = `{"document_title":"Valve Manual","document_id":"TI-1-01","visual_description":"Specification tables and a cutaway diagram.","section":"Technical data","content_elements":[{"type":"figure","title":"Cutaway"}]}`
	testTableJSON   = `{"title":"Valve dimensions","summary":"Size and weight per DN.","keywords":["valve","DN15"]}`
	testImageJSON   = `{"image_type":"diagram","title":"Valve cutaway","summary":"Internal components.","natural_description":"A sectioned valve body with labelled trim parts.","keywords":["valve","cutaway"]}`
)

// fakeModel returns canned payloads per call type and counts invocations
type fakeModel struct {
	mu        sync.Mutex
	calls     []interfaces.CallType
	responses map[interfaces.CallType]string

	// failWhen, if set, is consulted before answering
	failWhen func(req *interfaces.ModelRequest) error
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		responses: map[interfaces.CallType]string{
			interfaces.CallTypeContext:         testContextJSON,
			interfaces.CallTypeTable:           testTableJSON,
			interfaces.CallTypeImage:           testImageJSON,
			interfaces.CallTypeTableCorrection: "```html\n" + testCorrectedMarkup + "\n```",
		},
	}
}

func (m *fakeModel) Invoke(ctx context.Context, req *interfaces.ModelRequest) (*interfaces.ModelResult, error) {
	if m.failWhen != nil {
		if err := m.failWhen(req); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, req.CallType)
	m.mu.Unlock()

	return &interfaces.ModelResult{
		Text:  m.responses[req.CallType],
		Model: "fake-model",
		Usage: interfaces.ModelUsage{PromptTokens: 100, CompletionTokens: 50, Cost: 0.001},
	}, nil
}

func (m *fakeModel) Model() string { return "fake-model" }
func (m *fakeModel) Close() error  { return nil }

func (m *fakeModel) callCount(callType interfaces.CallType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == callType {
			n++
		}
	}
	return n
}

func (m *fakeModel) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// pageSpec declares what a seeded page contains
type pageSpec struct {
	tables  int
	figures int
	noText  bool
}

// seedPage writes one page's extraction-stage artifacts
func seedPage(t *testing.T, store interfaces.ArtifactStore, n int, spec pageSpec) *models.Page {
	t.Helper()

	page := &models.Page{Number: n}

	imageRef := interfaces.ArtifactRef{Page: n, Kind: models.ArtifactPageImage}
	if err := store.Write(imageRef, []byte(fmt.Sprintf("png-page-%d", n))); err != nil {
		t.Fatal(err)
	}

	basic := models.BasicMetadata{
		PageNumber: n,
		PageImage:  artifacts.FileName(imageRef),
		Tables:     []string{},
		Figures:    []string{},
		TextBlocks: []string{},
	}

	if !spec.noText {
		textRef := interfaces.ArtifactRef{Page: n, Kind: models.ArtifactPageText}
		if err := store.Write(textRef, []byte(fmt.Sprintf("text for page %d", n))); err != nil {
			t.Fatal(err)
		}
		page.HasText = true
		basic.TextBlocks = append(basic.TextBlocks, artifacts.FileName(textRef))
	}

	for j := 1; j <= spec.tables; j++ {
		rawRef := interfaces.ArtifactRef{Page: n, Kind: models.ArtifactTableRaw, Index: j}
		if err := store.Write(rawRef, []byte(testRawMarkup)); err != nil {
			t.Fatal(err)
		}
		tableImageRef := interfaces.ArtifactRef{Page: n, Kind: models.ArtifactTableImage, Index: j}
		if err := store.Write(tableImageRef, []byte("png-table")); err != nil {
			t.Fatal(err)
		}
		page.Tables = append(page.Tables, &models.Table{PageNumber: n, Index: j})
		basic.Tables = append(basic.Tables, models.TableID(n, j))
	}

	for j := 1; j <= spec.figures; j++ {
		figureRef := interfaces.ArtifactRef{Page: n, Kind: models.ArtifactFigureImage, Index: j}
		if err := store.Write(figureRef, []byte("png-figure")); err != nil {
			t.Fatal(err)
		}
		page.Figures = append(page.Figures, &models.Figure{PageNumber: n, Index: j})
		basic.Figures = append(basic.Figures, models.FigureID(n, j))
	}

	basicRef := interfaces.ArtifactRef{Page: n, Kind: models.ArtifactBasicMetadata}
	if err := store.WriteJSON(basicRef, &basic); err != nil {
		t.Fatal(err)
	}

	return page
}

// seedPages writes extraction-stage artifacts for len(specs) pages and
// returns the matching document.
func seedPages(t *testing.T, store interfaces.ArtifactStore, specs ...pageSpec) *models.Document {
	t.Helper()

	doc := &models.Document{SourcePath: "seed.pdf", Name: "seed"}
	for i, spec := range specs {
		doc.Pages = append(doc.Pages, seedPage(t, store, i+1, spec))
	}
	return doc
}

// fakeExtractor seeds pages on Extract, standing in for the PDF pipeline
type fakeExtractor struct {
	t     *testing.T
	specs []pageSpec

	extractCalls   int
	extractedPages []int
}

func (e *fakeExtractor) PageCount(ctx context.Context, pdfPath string) (int, error) {
	return len(e.specs), nil
}

func (e *fakeExtractor) Extract(ctx context.Context, pdfPath string, store interfaces.ArtifactStore, pages []int) (*models.Document, error) {
	e.extractCalls++
	if pages == nil {
		for n := 1; n <= len(e.specs); n++ {
			pages = append(pages, n)
		}
	}

	doc := &models.Document{SourcePath: pdfPath, Name: "seed"}
	for _, n := range pages {
		if n < 1 || n > len(e.specs) {
			e.t.Fatalf("extract requested page %d of %d", n, len(e.specs))
		}
		e.extractedPages = append(e.extractedPages, n)
		doc.Pages = append(doc.Pages, seedPage(e.t, store, n, e.specs[n-1]))
	}
	return doc, nil
}

// newTestHarness wires an orchestrator over a temp store with fakes
func newTestHarness(t *testing.T, specs ...pageSpec) (*Orchestrator, *fakeModel, interfaces.ArtifactStore, *costs.Ledger) {
	t.Helper()

	cfg := common.DefaultConfig()
	cfg.Pipeline.OutputDir = t.TempDir()
	cfg.Workers.PageConcurrency = 2

	pdfPath := filepath.Join(t.TempDir(), "seed.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Pipeline.PDFPath = pdfPath

	store, err := artifacts.NewStore(filepath.Join(cfg.Pipeline.OutputDir, "seed"), common.GetLogger())
	if err != nil {
		t.Fatal(err)
	}

	model := newFakeModel()
	ledger := costs.NewLedger()
	extractor := &fakeExtractor{t: t, specs: specs}

	orch, err := NewOrchestrator(cfg, store, extractor, model, ledger, common.GetLogger())
	if err != nil {
		t.Fatal(err)
	}
	return orch, model, store, ledger
}
