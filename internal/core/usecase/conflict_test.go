package usecase

import (
	"testing"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

func TestDetectConflictsOppositePolaritySameSubject(t *testing.T) {
	evidence := []domain.EvidenceItem{
		{DocumentID: "d1", Snippet: "Der Sprachassistent funktioniert nicht mehr", Metadata: map[string]string{"vehicle_model": "ID.4"}},
		{DocumentID: "d2", Snippet: "Der Sprachassistent funktioniert einwandfrei", Metadata: map[string]string{"vehicle_model": "ID.4"}},
	}
	flags := detectConflicts(evidence)
	if len(flags) != 1 {
		t.Fatalf("expected 1 conflict flag, got %d", len(flags))
	}
	if flags[0].DocumentA != "d1" || flags[0].DocumentB != "d2" {
		t.Fatalf("unexpected pair: %+v", flags[0])
	}
}

func TestDetectConflictsDifferentSubjectsIgnored(t *testing.T) {
	evidence := []domain.EvidenceItem{
		{DocumentID: "d1", Snippet: "Navigation funktioniert nicht", Metadata: map[string]string{"vehicle_model": "ID.4"}},
		{DocumentID: "d2", Snippet: "Navigation funktioniert einwandfrei", Metadata: map[string]string{"vehicle_model": "Golf"}},
	}
	if flags := detectConflicts(evidence); len(flags) != 0 {
		t.Fatalf("different subjects must not conflict: %+v", flags)
	}
}

func TestDetectConflictsNegationBeatsPositiveMarker(t *testing.T) {
	// "funktioniert nicht" contains a positive marker substring but is negative.
	if got := textPolarity("Die Funktion funktioniert nicht"); got != polarityNegative {
		t.Fatalf("expected negative polarity, got %v", got)
	}
	if got := textPolarity("Die Funktion funktioniert super"); got != polarityPositive {
		t.Fatalf("expected positive polarity, got %v", got)
	}
	if got := textPolarity("Die Funktion wurde beobachtet"); got != polarityNone {
		t.Fatalf("expected no polarity, got %v", got)
	}
}

func TestDetectConflictsNeutralNeverFlags(t *testing.T) {
	evidence := []domain.EvidenceItem{
		{DocumentID: "d1", Snippet: "Update am Dienstag eingespielt", Metadata: map[string]string{"vehicle_model": "ID.4"}},
		{DocumentID: "d2", Snippet: "Das Update funktioniert einwandfrei", Metadata: map[string]string{"vehicle_model": "ID.4"}},
	}
	if flags := detectConflicts(evidence); len(flags) != 0 {
		t.Fatalf("neutral vs positive must not conflict: %+v", flags)
	}
}
