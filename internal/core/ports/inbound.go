package ports

import (
	"context"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

// FeedbackIngestor is the inbound contract for batch imports of raw feedback
// records. Per-record failures are reported, not fatal to the batch.
type FeedbackIngestor interface {
	IngestBatch(ctx context.Context, records []domain.RawRecord) ([]domain.IngestReport, error)
}

// AnswerService is the inbound contract for grounded question answering and
// retrieval-only search.
type AnswerService interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
	Search(ctx context.Context, query string, k int) ([]domain.FusedCandidate, error)
}

// IndexRebuilder is the inbound contract for wholesale index rebuilds.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) error
}
