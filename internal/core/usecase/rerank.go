package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

// rerankEvidence optionally reorders the filtered evidence set by blending the
// normalized fused score with query-token overlap. FusedScore itself is left
// untouched so the relevance-threshold invariant keeps holding; only the
// presentation order changes.
func rerankEvidence(question string, evidence []domain.EvidenceItem) []domain.EvidenceItem {
	if len(evidence) < 2 {
		return evidence
	}

	out := make([]domain.EvidenceItem, len(evidence))
	copy(out, evidence)
	queryTokens := toTokenSet(question)

	minScore, maxScore := out[0].FusedScore, out[0].FusedScore
	for _, item := range out[1:] {
		if item.FusedScore < minScore {
			minScore = item.FusedScore
		}
		if item.FusedScore > maxScore {
			maxScore = item.FusedScore
		}
	}
	scoreRange := maxScore - minScore
	normalize := func(v float64) float64 {
		if scoreRange <= 0 {
			return 1
		}
		return (v - minScore) / scoreRange
	}

	blended := make([]float64, len(out))
	for i := range out {
		blended[i] = 0.7*normalize(out[i].FusedScore) + 0.3*tokenOverlap(queryTokens, toTokenSet(out[i].Snippet))
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if blended[order[i]] != blended[order[j]] {
			return blended[order[i]] > blended[order[j]]
		}
		return out[order[i]].DocumentID < out[order[j]].DocumentID
	})

	reordered := make([]domain.EvidenceItem, 0, len(out))
	for _, idx := range order {
		reordered = append(reordered, out[idx])
	}
	return reordered
}

func toTokenSet(text string) map[string]struct{} {
	out := make(map[string]struct{}, 16)
	var b strings.Builder
	flush := func() {
		if b.Len() >= 2 {
			out[b.String()] = struct{}{}
		}
		b.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return out
}

func tokenOverlap(query, snippet map[string]struct{}) float64 {
	if len(query) == 0 || len(snippet) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := snippet[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}
