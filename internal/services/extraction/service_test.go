package extraction

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ternarybob/folium/internal/common"
)

func newTestService(minArea int) *Service {
	cfg := common.DefaultConfig()
	cfg.Render.MinFigureArea = minArea
	return NewService(cfg, common.GetLogger())
}

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestReadFigureFiltersByArea(t *testing.T) {
	svc := newTestService(400)
	dir := t.TempDir()

	large := writeTestPNG(t, dir, "large.png", 40, 40)
	small := writeTestPNG(t, dir, "small.png", 10, 10)

	data, err := svc.readFigure(large)
	if err != nil {
		t.Fatalf("readFigure(large): %v", err)
	}
	if data == nil {
		t.Error("40x40 image should pass the minimum area filter")
	}

	data, err = svc.readFigure(small)
	if err != nil {
		t.Fatalf("readFigure(small): %v", err)
	}
	if data != nil {
		t.Error("10x10 image should be dropped as icon-sized")
	}
}

func TestReadFigureRejectsNonImage(t *testing.T) {
	svc := newTestService(0)
	dir := t.TempDir()

	path := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.readFigure(path); err == nil {
		t.Error("expected decode error for non-image payload")
	}
}

func TestExtractedImagePattern(t *testing.T) {
	tests := []struct {
		name string
		file string
		page string
		ok   bool
	}{
		{"typical", "manual_page_12_Im3.png", "12", true},
		{"single digit", "doc_page_1_Im0.jpg", "1", true},
		{"no page marker", "thumbnail.png", "", false},
		{"page in stem only", "my_pages_notes.png", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := extractedImagePattern.FindStringSubmatch(tt.file)
			if tt.ok {
				if match == nil {
					t.Fatalf("expected %q to match", tt.file)
				}
				if match[1] != tt.page {
					t.Errorf("page = %q, want %q", match[1], tt.page)
				}
			} else if match != nil {
				t.Errorf("expected %q not to match, got %v", tt.file, match)
			}
		})
	}
}

func TestPageCountMissingFile(t *testing.T) {
	svc := newTestService(400)

	if _, err := svc.PageCount(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing PDF")
	}
}
