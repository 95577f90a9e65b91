package lexical

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

func testDocs() []domain.Document {
	return []domain.Document{
		{ID: "d1", AnonymizedText: "Der Sprachassistent reagiert nicht mehr nach dem Update"},
		{ID: "d2", AnonymizedText: "Hey Volkswagen Befehl wird ignoriert"},
		{ID: "d3", AnonymizedText: "Navigation berechnet die Route viel zu langsam"},
		{ID: "d4", AnonymizedText: "Sprachassistent versteht Befehle im Navigationsmodus"},
	}
}

func TestSearchRanksTermMatchesFirst(t *testing.T) {
	idx := New(NewNormalizer(), "")
	if err := idx.Rebuild(context.Background(), testDocs()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	got, err := idx.Search(context.Background(), "Sprachassistent reagiert nicht", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("expected candidates")
	}
	if got[0].DocumentID != "d1" {
		t.Fatalf("expected d1 first, got %s", got[0].DocumentID)
	}
	if got[0].Rank != 1 || got[0].SourceMethod != domain.MethodLexical {
		t.Fatalf("unexpected rank metadata: %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].MethodScore > got[i-1].MethodScore {
			t.Fatalf("scores not descending at %d: %+v", i, got)
		}
		if got[i].Rank != i+1 {
			t.Fatalf("rank not sequential at %d: %+v", i, got[i])
		}
	}
}

func TestSearchUnbuiltIndexFailsFast(t *testing.T) {
	idx := New(NewNormalizer(), "")
	_, err := idx.Search(context.Background(), "irgendwas", 5)
	if err == nil {
		t.Fatalf("expected error on unbuilt index")
	}
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestSearchNoMatchingTermsIsEmptyNotError(t *testing.T) {
	idx := New(NewNormalizer(), "")
	if err := idx.Rebuild(context.Background(), testDocs()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	got, err := idx.Search(context.Background(), "Kofferraumbeleuchtung", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}

func TestRebuildPersistsAndLoadRestores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexical.snapshot")

	writer := New(NewNormalizer(), path)
	if err := writer.Rebuild(context.Background(), testDocs()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	reader := New(NewNormalizer(), path)
	if err := reader.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, err := reader.Search(context.Background(), "Navigation langsam", 3)
	if err != nil {
		t.Fatalf("Search() after Load error = %v", err)
	}
	if len(got) == 0 || got[0].DocumentID != "d3" {
		t.Fatalf("expected d3 from restored snapshot, got %+v", got)
	}
}

func TestRebuildSwapsSnapshotWholesale(t *testing.T) {
	idx := New(NewNormalizer(), "")
	if err := idx.Rebuild(context.Background(), testDocs()); err != nil {
		t.Fatalf("first Rebuild() error = %v", err)
	}
	if err := idx.Rebuild(context.Background(), []domain.Document{
		{ID: "x1", AnonymizedText: "Rückfahrkamera zeigt schwarzes Bild"},
	}); err != nil {
		t.Fatalf("second Rebuild() error = %v", err)
	}

	got, err := idx.Search(context.Background(), "Sprachassistent", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("old snapshot still visible after rebuild: %+v", got)
	}
}

func TestNormalizerTokens(t *testing.T) {
	n := NewNormalizer()
	got := n.Tokens("Die Navigation stürzt ab, Fehler-Code 42!")
	want := []string{"navigation", "stürzt", "ab", "fehler", "code", "42"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
