package semantic

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

// Index stores one unit-normalized dense vector per document and answers
// cosine nearest-neighbor queries. Embeddings are computed by the external
// embedding service; the snapshot pins the embedder version and Search rejects
// queries embedded with a different one, since mismatched versions silently
// corrupt similarity semantics.
type Index struct {
	path string

	snap atomic.Pointer[Snapshot]
}

// Snapshot fields are exported for gob persistence only.
type Snapshot struct {
	EmbedderVersion string
	Dim             int
	DocIDs          []string
	Vectors         [][]float32
}

func New(path string) *Index {
	return &Index{path: path}
}

func (idx *Index) Rebuild(_ context.Context, ids []string, vectors [][]float32, embedderVersion string) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors mismatch: %d vs %d", len(ids), len(vectors))
	}

	snap := &Snapshot{
		EmbedderVersion: embedderVersion,
		DocIDs:          append([]string(nil), ids...),
		Vectors:         make([][]float32, 0, len(vectors)),
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return fmt.Errorf("empty vector for document %s", ids[i])
		}
		if snap.Dim == 0 {
			snap.Dim = len(vec)
		}
		if len(vec) != snap.Dim {
			return fmt.Errorf("vector dimension mismatch for document %s: %d vs %d", ids[i], len(vec), snap.Dim)
		}
		snap.Vectors = append(snap.Vectors, normalize(vec))
	}

	if idx.path != "" {
		if err := snapfile.Save(idx.path, snap); err != nil {
			return fmt.Errorf("persist semantic snapshot: %w", err)
		}
	}
	idx.snap.Store(snap)
	return nil
}

// Load restores the last persisted snapshot atomically.
func (idx *Index) Load() error {
	if idx.path == "" {
		return errors.New("semantic index has no snapshot path")
	}
	var snap Snapshot
	if err := snapfile.Load(idx.path, &snap); err != nil {
		return err
	}
	idx.snap.Store(&snap)
	return nil
}

func (idx *Index) Search(_ context.Context, queryVector []float32, embedderVersion string, k int) ([]domain.RankedCandidate, error) {
	snap := idx.snap.Load()
	if snap == nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "semantic search", errors.New("no snapshot built"))
	}
	if snap.EmbedderVersion != embedderVersion {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "semantic search",
			fmt.Errorf("embedder version mismatch: index=%q query=%q", snap.EmbedderVersion, embedderVersion))
	}
	if k <= 0 || len(snap.DocIDs) == 0 {
		return nil, nil
	}
	if len(queryVector) != snap.Dim {
		return nil, fmt.Errorf("query vector dimension %d does not match index dimension %d", len(queryVector), snap.Dim)
	}

	query := normalize(queryVector)
	type scored struct {
		doc   int
		score float64
	}
	ranked := make([]scored, 0, len(snap.DocIDs))
	for i, vec := range snap.Vectors {
		ranked = append(ranked, scored{doc: i, score: dot(query, vec)})
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
			SourceMethod: domain.MethodSemantic,
		})
	}
	return out, nil
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	if norm == 0 {
		copy(out, vec)
		return out
	}
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
