package pipeline

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ternarybob/folium/internal/common"
	"github.com/ternarybob/folium/internal/models"
	"github.com/ternarybob/folium/internal/services/artifacts"
)

func TestWindowBuilder(t *testing.T) {
	store, err := artifacts.NewStore(filepath.Join(t.TempDir(), "seed"), common.GetLogger())
	if err != nil {
		t.Fatal(err)
	}
	doc := seedPages(t, store,
		pageSpec{}, pageSpec{}, pageSpec{}, pageSpec{}, pageSpec{})

	builder := NewWindowBuilder(store)

	t.Run("first page has no previous", func(t *testing.T) {
		w, err := builder.Build(doc, 1)
		if err != nil {
			t.Fatal(err)
		}
		if w.Prev != nil {
			t.Error("expected nil Prev at the document start")
		}
		if w.Current == nil || w.Current.Number != 1 {
			t.Fatal("missing current page")
		}
		if w.Next == nil || w.Next.Number != 2 {
			t.Error("expected page 2 as Next")
		}
	})

	t.Run("interior page has both neighbours", func(t *testing.T) {
		w, err := builder.Build(doc, 3)
		if err != nil {
			t.Fatal(err)
		}
		if w.Prev == nil || w.Prev.Number != 2 {
			t.Error("expected page 2 as Prev")
		}
		if w.Next == nil || w.Next.Number != 4 {
			t.Error("expected page 4 as Next")
		}
		if w.Current.Text != "text for page 3" {
			t.Errorf("unexpected current text %q", w.Current.Text)
		}
		if len(w.Images()) != 3 {
			t.Errorf("expected 3 window images, got %d", len(w.Images()))
		}
	})

	t.Run("last page has no next", func(t *testing.T) {
		w, err := builder.Build(doc, 5)
		if err != nil {
			t.Fatal(err)
		}
		if w.Next != nil {
			t.Error("expected nil Next at the document end")
		}
		if w.Prev == nil || w.Prev.Number != 4 {
			t.Error("expected page 4 as Prev")
		}
	})

	t.Run("missing current page image fails", func(t *testing.T) {
		shortDoc := &models.Document{Pages: []*models.Page{{Number: 9}}}
		_, err := builder.Build(shortDoc, 9)
		var depErr *models.DependencyError
		if !errors.As(err, &depErr) {
			t.Fatalf("expected a dependency error, got %v", err)
		}
	})
}

func TestWindowShrinksWhenNeighbourMissing(t *testing.T) {
	store, err := artifacts.NewStore(filepath.Join(t.TempDir(), "seed"), common.GetLogger())
	if err != nil {
		t.Fatal(err)
	}
	doc := seedPages(t, store, pageSpec{}, pageSpec{}, pageSpec{})

	// drop page 1's image by pointing the builder at a doc that claims a
	// page the store never saw
	doc.Pages = append(doc.Pages, &models.Page{Number: 4})

	w, err := NewWindowBuilder(store).Build(doc, 3)
	if err != nil {
		t.Fatal(err)
	}
	if w.Next != nil {
		t.Error("expected nil Next when the neighbour's artifacts are absent")
	}
	if len(w.Images()) != 2 {
		t.Errorf("expected 2 window images, got %d", len(w.Images()))
	}

	// text is optional per page
	textlessStore, err := artifacts.NewStore(filepath.Join(t.TempDir(), "seed"), common.GetLogger())
	if err != nil {
		t.Fatal(err)
	}
	textlessDoc := seedPages(t, textlessStore, pageSpec{noText: true})
	w, err = NewWindowBuilder(textlessStore).Build(textlessDoc, 1)
	if err != nil {
		t.Fatal(err)
	}
	if w.Current.Text != "" {
		t.Errorf("expected empty text, got %q", w.Current.Text)
	}
}
