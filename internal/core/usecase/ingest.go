package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
	"github.com/mklnsk/feedback-insight/internal/core/ports"
)

// IngestUseCase anonymizes raw feedback records and persists the redacted
// documents. Raw text never leaves this function: only the anonymized body is
// stored, and original PII values surface solely in the per-record report for
// operator preview.
type IngestUseCase struct {
	anonymizer ports.Anonymizer
	repo       ports.DocumentRepository
	queue      ports.RebuildQueue
}

func NewIngestUseCase(
	anonymizer ports.Anonymizer,
	repo ports.DocumentRepository,
	queue ports.RebuildQueue,
) *IngestUseCase {
	return &IngestUseCase{
		anonymizer: anonymizer,
		repo:       repo,
		queue:      queue,
	}
}

// IngestBatch processes records independently: a failing record is reported
// in its slot and does not abort the batch. One rebuild request is published
// after the batch when at least one record was persisted.
func (uc *IngestUseCase) IngestBatch(ctx context.Context, records []domain.RawRecord) ([]domain.IngestReport, error) {
	reports := make([]domain.IngestReport, len(records))
	persisted := 0

	for i, record := range records {
		report, err := uc.ingestOne(ctx, record)
		if err != nil {
			reports[i] = domain.IngestReport{DocumentID: record.ID, Error: err.Error()}
			continue
		}
		reports[i] = report
		persisted++
	}

	if persisted > 0 {
		batchID := uuid.NewString()
		if err := uc.queue.PublishRebuildRequested(ctx, batchID); err != nil {
			return reports, fmt.Errorf("publish rebuild request: %w", err)
		}
	}
	return reports, nil
}

func (uc *IngestUseCase) ingestOne(ctx context.Context, record domain.RawRecord) (domain.IngestReport, error) {
	if strings.TrimSpace(record.Text) == "" {
		return domain.IngestReport{}, domain.WrapError(domain.ErrInvalidInput, "ingest record", errEmptyText)
	}

	anonymized, matches, err := uc.anonymizer.Anonymize(record.Text)
	if err != nil {
		return domain.IngestReport{}, err
	}

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}
	doc := &domain.Document{
		ID:             id,
		AnonymizedText: anonymized,
		Metadata:       record.Metadata,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return domain.IngestReport{}, fmt.Errorf("persist document: %w", err)
	}

	return domain.IngestReport{
		DocumentID: id,
		Anonymized: true,
		PIIMatches: matches,
	}, nil
}

var errEmptyText = fmt.Errorf("record text is empty")
