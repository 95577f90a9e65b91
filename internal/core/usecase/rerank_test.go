package usecase

import (
	"testing"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

func TestRerankPromotesQueryOverlap(t *testing.T) {
	evidence := []domain.EvidenceItem{
		{DocumentID: "d1", Snippet: "Die Sitzheizung ist angenehm", FusedScore: 0.032},
		{DocumentID: "d2", Snippet: "Der Sprachassistent reagiert nicht nach dem Update", FusedScore: 0.032},
	}
	out := rerankEvidence("Sprachassistent reagiert nicht", evidence)
	if out[0].DocumentID != "d2" {
		t.Fatalf("expected overlap-heavy document first, got %+v", out)
	}
	// Reranking reorders only; the fused score is reported unchanged.
	for _, item := range out {
		if item.DocumentID == "d2" && item.FusedScore != 0.032 {
			t.Fatalf("fused score mutated by rerank: %+v", item)
		}
	}
}

func TestRerankStableOnNoOverlap(t *testing.T) {
	evidence := []domain.EvidenceItem{
		{DocumentID: "d1", Snippet: "Alpha", FusedScore: 0.03},
		{DocumentID: "d2", Snippet: "Beta", FusedScore: 0.02},
	}
	out := rerankEvidence("völlig anderes Thema", evidence)
	if out[0].DocumentID != "d1" || out[1].DocumentID != "d2" {
		t.Fatalf("order must be preserved without overlap signal: %+v", out)
	}
}

func TestRerankEmptyEvidence(t *testing.T) {
	if out := rerankEvidence("Frage", nil); len(out) != 0 {
		t.Fatalf("expected empty result, got %+v", out)
	}
}
