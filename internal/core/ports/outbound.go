package ports

import (
	"context"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

// Anonymizer strips PII from raw text before anything is persisted or indexed.
// Pure and deterministic; returns the redacted text plus all matches in
// left-to-right order.
type Anonymizer interface {
	Anonymize(raw string) (string, []domain.PIIMatch, error)
}

// DocumentRepository persists anonymized documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error)
	ListAll(ctx context.Context) ([]domain.Document, error)
}

// Embedder builds vectors for document bodies and query text. Version
// identifies the embedding model; index and query vectors must come from the
// same version.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Version() string
}

// Generator is the external text-completion service, invoked single-shot with
// a fully constructed prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string, constraints domain.GenerationConstraints) (string, error)
}

// LexicalIndex is token-frequency search over anonymized bodies. Rebuild is
// wholesale; Search runs against a point-in-time snapshot.
type LexicalIndex interface {
	Rebuild(ctx context.Context, docs []domain.Document) error
	Search(ctx context.Context, query string, k int) ([]domain.RankedCandidate, error)
}

// SemanticIndex is nearest-neighbor search over dense vectors. The embedder
// version recorded at rebuild time must match the one supplied at query time.
type SemanticIndex interface {
	Rebuild(ctx context.Context, ids []string, vectors [][]float32, embedderVersion string) error
	Search(ctx context.Context, queryVector []float32, embedderVersion string, k int) ([]domain.RankedCandidate, error)
}

// RebuildQueue carries index-rebuild requests from the ingestion path to the
// single-writer rebuild worker.
type RebuildQueue interface {
	PublishRebuildRequested(ctx context.Context, batchID string) error
	SubscribeRebuildRequested(ctx context.Context, handler func(context.Context, string) error) error
}
