package usecase

import (
	"strings"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

// Polarity markers for the conflict heuristic. Negative markers are checked
// first so that negated phrases ("funktioniert nicht") are not read as praise.
var negativeMarkers = []string{
	"funktioniert nicht", "reagiert nicht", "geht nicht", "nicht mehr",
	"stürzt ab", "wird ignoriert", "fehler", "defekt", "kaputt", "problem",
	"langsam", "schlecht", "ärgerlich", "enttäuscht",
	"does not work", "not working", "broken", "crashes", "ignored",
}

var positiveMarkers = []string{
	"funktioniert einwandfrei", "funktioniert gut", "zuverlässig", "super",
	"toll", "perfekt", "zufrieden", "begeistert", "schnell", "einwandfrei",
	"works great", "works well", "reliable", "excellent",
}

type polarity int

const (
	polarityNone polarity = iota
	polarityNegative
	polarityPositive
)

func textPolarity(text string) polarity {
	lower := strings.ToLower(text)
	for _, marker := range negativeMarkers {
		if strings.Contains(lower, marker) {
			return polarityNegative
		}
	}
	for _, marker := range positiveMarkers {
		if strings.Contains(lower, marker) {
			return polarityPositive
		}
	}
	return polarityNone
}

// conflictSubject picks the metadata field two items must share before their
// opposing polarity counts as a contradiction.
func conflictSubject(item domain.EvidenceItem) string {
	if s := item.Metadata["vehicle_model"]; s != "" {
		return s
	}
	return item.Metadata["label"]
}

// detectConflicts scans evidence pairs for opposite sentiment polarity on the
// same subject. Conflicts are surfaced to the caller, never suppressed, and
// never block generation. The heuristic is deliberately approximate.
func detectConflicts(evidence []domain.EvidenceItem) []domain.ConflictFlag {
	if len(evidence) < 2 {
		return nil
	}

	polarities := make([]polarity, len(evidence))
	subjects := make([]string, len(evidence))
	for i, item := range evidence {
		polarities[i] = textPolarity(item.Snippet)
		subjects[i] = conflictSubject(item)
	}

	var flags []domain.ConflictFlag
	for i := 0; i < len(evidence); i++ {
		if polarities[i] == polarityNone || subjects[i] == "" {
			continue
		}
		for j := i + 1; j < len(evidence); j++ {
			if subjects[j] != subjects[i] {
				continue
			}
			if polarities[j] == polarityNone || polarities[j] == polarities[i] {
				continue
			}
			flags = append(flags, domain.ConflictFlag{
				DocumentA: evidence[i].DocumentID,
				DocumentB: evidence[j].DocumentID,
			})
		}
	}
	return flags
}
