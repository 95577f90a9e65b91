package usecase

import (
	"sort"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

const defaultRRFK = 60

// fuseRRF merges the two per-method ranked lists by reciprocal-rank fusion:
// fused(d) = Σ 1/(K + rank). Rank positions rather than raw scores are summed
// because lexical and cosine scores live on incomparable scales. Absence from
// one list contributes nothing; it is not a penalty. K flattens rank influence
// beyond roughly the top ten while still rewarding top positions.
func fuseRRF(lexical, semantic []domain.RankedCandidate, rrfK int) []domain.FusedCandidate {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]*domain.FusedCandidate, len(lexical)+len(semantic))
	add := func(candidates []domain.RankedCandidate) {
		for _, c := range candidates {
			fused, ok := acc[c.DocumentID]
			if !ok {
				fused = &domain.FusedCandidate{DocumentID: c.DocumentID}
				acc[c.DocumentID] = fused
			}
			fused.FusedScore += 1.0 / float64(rrfK+c.Rank)
			fused.ContributingMethods = append(fused.ContributingMethods, c.SourceMethod)
			if c.SourceMethod == domain.MethodLexical {
				fused.LexicalScore = c.MethodScore
			}
		}
	}
	add(lexical)
	add(semantic)

	out := make([]domain.FusedCandidate, 0, len(acc))
	for _, fused := range acc {
		out = append(out, *fused)
	}

	// Tie-break: higher raw lexical score, then smaller document id, so the
	// output order is a total order and therefore deterministic.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		if out[i].LexicalScore != out[j].LexicalScore {
			return out[i].LexicalScore > out[j].LexicalScore
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}
