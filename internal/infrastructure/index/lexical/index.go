package lexical

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
	"github.com/mklnsk/feedback-insight/internal/infrastructure/index/snapfile"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Index is an in-process BM25 index over anonymized document bodies. A rebuild
// constructs a complete new snapshot and swaps it in atomically; queries always
// run against a point-in-time snapshot and never observe a half-built index.
type Index struct {
	normalizer Normalizer
	path       string

	snap atomic.Pointer[Snapshot]
}

// Posting records one document's term frequency for a term.
type Posting struct {
	Doc int32
	TF  int32
}

// Snapshot is the complete immutable search structure. Fields are exported
// for gob persistence only.
type Snapshot struct {
	NormalizerName string
	DocIDs         []string
	DocLens        []int32
	AvgDocLen      float64
	Postings       map[string][]Posting
}

// New creates an index persisting snapshots at path. An empty path disables
// persistence (used in tests).
func New(normalizer Normalizer, path string) *Index {
	return &Index{normalizer: normalizer, path: path}
}

func (idx *Index) Rebuild(_ context.Context, docs []domain.Document) error {
	snap := &Snapshot{
		NormalizerName: idx.normalizer.Name(),
		DocIDs:         make([]string, 0, len(docs)),
		DocLens:        make([]int32, 0, len(docs)),
		Postings:       make(map[string][]Posting),
	}

	totalLen := 0
	for i, doc := range docs {
		tokens := idx.normalizer.Tokens(doc.AnonymizedText)
		snap.DocIDs = append(snap.DocIDs, doc.ID)
		snap.DocLens = append(snap.DocLens, int32(len(tokens)))
		totalLen += len(tokens)

		tf := make(map[string]int32, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, freq := range tf {
			snap.Postings[term] = append(snap.Postings[term], Posting{Doc: int32(i), TF: freq})
		}
	}
	if len(docs) > 0 {
		snap.AvgDocLen = float64(totalLen) / float64(len(docs))
	}

	if idx.path != "" {
		if err := snapfile.Save(idx.path, snap); err != nil {
			return fmt.Errorf("persist lexical snapshot: %w", err)
		}
	}
	idx.snap.Store(snap)
	return nil
}

// Load restores the last persisted snapshot, replacing the in-memory one
// atomically. Used at startup and when the snapshot file changes on disk.
func (idx *Index) Load() error {
	if idx.path == "" {
		return errors.New("lexical index has no snapshot path")
	}
	var snap Snapshot
	if err := snapfile.Load(idx.path, &snap); err != nil {
		return err
	}
	if snap.NormalizerName != idx.normalizer.Name() {
		return fmt.Errorf("lexical snapshot normalizer %q does not match %q", snap.NormalizerName, idx.normalizer.Name())
	}
	idx.snap.Store(&snap)
	return nil
}

// DocumentCount reports the size of the current snapshot, zero when no
// snapshot has been built or loaded yet.
func (idx *Index) DocumentCount() int {
	snap := idx.snap.Load()
	if snap == nil {
		return 0
	}
	return len(snap.DocIDs)
}

func (idx *Index) Search(_ context.Context, query string, k int) ([]domain.RankedCandidate, error) {
	snap := idx.snap.Load()
	if snap == nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "lexical search", errors.New("no snapshot built"))
	}
	if k <= 0 {
		return nil, nil
	}

	terms := idx.normalizer.Tokens(query)
	if len(terms) == 0 {
		return nil, nil
	}

	n := float64(len(snap.DocIDs))
	scores := make(map[int32]float64)
	for _, term := range terms {
		postings, ok := snap.Postings[term]
		if !ok {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1.0 + (n-df+0.5)/(df+0.5))
		for _, p := range postings {
			tf := float64(p.TF)
			norm := 1.0 - bm25B + bm25B*float64(snap.DocLens[p.Doc])/snap.AvgDocLen
			scores[p.Doc] += idf * tf * (bm25K1 + 1.0) / (tf + bm25K1*norm)
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	type scored struct {
		doc   int32
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for doc, score := range scores {
		ranked = append(ranked, scored{doc: doc, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return snap.DocIDs[ranked[i].doc] < snap.DocIDs[ranked[j].doc]
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]domain.RankedCandidate, 0, len(ranked))
	for i, s := range ranked {
		out = append(out, domain.RankedCandidate{
			DocumentID:   snap.DocIDs[s.doc],
			Rank:         i + 1,
			MethodScore:  s.score,
			SourceMethod: domain.MethodLexical,
		})
	}
	return out, nil
}
