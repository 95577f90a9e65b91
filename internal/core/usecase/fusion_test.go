package usecase

import (
	"testing"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

func lexCandidate(id string, rank int, score float64) domain.RankedCandidate {
	return domain.RankedCandidate{DocumentID: id, Rank: rank, MethodScore: score, SourceMethod: domain.MethodLexical}
}

func semCandidate(id string, rank int, score float64) domain.RankedCandidate {
	return domain.RankedCandidate{DocumentID: id, Rank: rank, MethodScore: score, SourceMethod: domain.MethodSemantic}
}

func TestFuseRRFDeterministic(t *testing.T) {
	lexical := []domain.RankedCandidate{lexCandidate("d1", 1, 4.2), lexCandidate("d2", 2, 3.1)}
	semantic := []domain.RankedCandidate{semCandidate("d2", 1, 0.91), semCandidate("d3", 2, 0.80)}

	first := fuseRRF(lexical, semantic, 60)
	for i := 0; i < 10; i++ {
		again := fuseRRF(lexical, semantic, 60)
		if len(again) != len(first) {
			t.Fatalf("non-deterministic length: %d vs %d", len(again), len(first))
		}
		for j := range first {
			if again[j].DocumentID != first[j].DocumentID {
				t.Fatalf("non-deterministic order at %d: %s vs %s", j, again[j].DocumentID, first[j].DocumentID)
			}
		}
	}
	if first[0].DocumentID != "d2" {
		t.Fatalf("expected d2 (present in both lists) first, got %s", first[0].DocumentID)
	}
}

func TestFuseRRFBothListsBeatsSingleList(t *testing.T) {
	lexical := []domain.RankedCandidate{lexCandidate("both", 1, 2.0)}
	semantic := []domain.RankedCandidate{semCandidate("both", 1, 0.9), semCandidate("single", 2, 0.8)}

	fused := fuseRRF(lexical, semantic, 60)
	if fused[0].DocumentID != "both" {
		t.Fatalf("expected both-lists document first, got %s", fused[0].DocumentID)
	}

	soloAtOne := fuseRRF(nil, []domain.RankedCandidate{semCandidate("solo", 1, 0.99)}, 60)
	if fused[0].FusedScore <= soloAtOne[0].FusedScore {
		t.Fatalf("rank-1-in-both score %f not above rank-1-in-one score %f", fused[0].FusedScore, soloAtOne[0].FusedScore)
	}
}

func TestFuseRRFTieBreakByLexicalScoreThenID(t *testing.T) {
	// Same rank in one list each: identical fused score.
	lexical := []domain.RankedCandidate{lexCandidate("zz", 1, 5.0)}
	semantic := []domain.RankedCandidate{semCandidate("aa", 1, 0.9)}

	fused := fuseRRF(lexical, semantic, 60)
	if fused[0].DocumentID != "zz" {
		t.Fatalf("expected higher lexical score to win tie, got %s first", fused[0].DocumentID)
	}

	// No lexical scores at all: smaller document id wins.
	fused = fuseRRF(nil, []domain.RankedCandidate{semCandidate("bb", 1, 0.5), semCandidate("ab", 1, 0.5)}, 60)
	if fused[0].DocumentID != "ab" {
		t.Fatalf("expected id tie-break, got %s first", fused[0].DocumentID)
	}

	// Swapping input order of equally-ranked entries does not change output.
	swapped := fuseRRF(nil, []domain.RankedCandidate{semCandidate("ab", 1, 0.5), semCandidate("bb", 1, 0.5)}, 60)
	if swapped[0].DocumentID != fused[0].DocumentID {
		t.Fatalf("tie-break depends on input order: %s vs %s", swapped[0].DocumentID, fused[0].DocumentID)
	}
}

func TestFuseRRFContributingMethods(t *testing.T) {
	lexical := []domain.RankedCandidate{lexCandidate("d1", 1, 3.3)}
	semantic := []domain.RankedCandidate{semCandidate("d2", 1, 0.88), semCandidate("d1", 2, 0.70)}

	fused := fuseRRF(lexical, semantic, 60)
	byID := map[string]domain.FusedCandidate{}
	for _, f := range fused {
		byID[f.DocumentID] = f
	}
	if len(byID["d1"].ContributingMethods) != 2 {
		t.Fatalf("expected d1 contributed by both methods: %+v", byID["d1"])
	}
	if len(byID["d2"].ContributingMethods) != 1 || byID["d2"].ContributingMethods[0] != domain.MethodSemantic {
		t.Fatalf("expected d2 semantic-only: %+v", byID["d2"])
	}
}

func TestFuseRRFVoiceAssistantScenario(t *testing.T) {
	// D1 tops lexical retrieval, D2 tops semantic retrieval; both must land
	// in the fused top 2.
	lexical := []domain.RankedCandidate{lexCandidate("D1", 1, 6.5), lexCandidate("D3", 2, 1.2)}
	semantic := []domain.RankedCandidate{semCandidate("D2", 1, 0.93), semCandidate("D1", 2, 0.85)}

	fused := fuseRRF(lexical, semantic, 60)
	if len(fused) < 2 {
		t.Fatalf("expected at least 2 fused candidates, got %d", len(fused))
	}
	top := map[string]bool{fused[0].DocumentID: true, fused[1].DocumentID: true}
	if !top["D1"] || !top["D2"] {
		t.Fatalf("expected D1 and D2 in top 2, got %+v", fused[:2])
	}

	byID := map[string]domain.FusedCandidate{}
	for _, f := range fused {
		byID[f.DocumentID] = f
	}
	if len(byID["D1"].ContributingMethods) != 2 {
		t.Fatalf("expected D1 contributed by lexical and semantic: %+v", byID["D1"])
	}
	if byID["D2"].ContributingMethods[0] != domain.MethodSemantic {
		t.Fatalf("expected D2 contributed by semantic: %+v", byID["D2"])
	}
}
