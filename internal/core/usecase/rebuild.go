package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
	"github.com/mklnsk/feedback-insight/internal/core/ports"
)

// embedBatchSize bounds a single embedding-service request.
const embedBatchSize = 64

// RebuildUseCase rebuilds both indexes wholesale from the document store.
// Rebuilds are serialized: ingestion must never interleave two rebuilds, and
// queries see either the old or the new snapshot, never a mix.
type RebuildUseCase struct {
	repo     ports.DocumentRepository
	embedder ports.Embedder
	lexical  ports.LexicalIndex
	semantic ports.SemanticIndex

	mu sync.Mutex
}

func NewRebuildUseCase(
	repo ports.DocumentRepository,
	embedder ports.Embedder,
	lexical ports.LexicalIndex,
	semantic ports.SemanticIndex,
) *RebuildUseCase {
	return &RebuildUseCase{
		repo:     repo,
		embedder: embedder,
		lexical:  lexical,
		semantic: semantic,
	}
}

func (uc *RebuildUseCase) Rebuild(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	docs, err := uc.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if err := uc.lexical.Rebuild(ctx, docs); err != nil {
		return fmt.Errorf("rebuild lexical index: %w", err)
	}

	ids := make([]string, 0, len(docs))
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
		texts = append(texts, doc.AnonymizedText)
	}

	vectors, err := uc.embedAll(ctx, texts)
	if err != nil {
		return err
	}
	if err := uc.semantic.Rebuild(ctx, ids, vectors, uc.embedder.Version()); err != nil {
		return fmt.Errorf("rebuild semantic index: %w", err)
	}
	return nil
}

func (uc *RebuildUseCase) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := uc.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, domain.WrapError(domain.ErrEmbeddingService, "embed documents", err)
		}
		if len(vectors) != end-start {
			return nil, domain.WrapError(domain.ErrEmbeddingService, "embed documents",
				fmt.Errorf("expected %d vectors, got %d", end-start, len(vectors)))
		}
		out = append(out, vectors...)
	}
	return out, nil
}
