package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
	"github.com/mklnsk/feedback-insight/internal/core/ports"
)

// QueryConfig carries the retrieval and generation tunables for one pipeline
// instance. Zero values fall back to the defaults below.
type QueryConfig struct {
	TopK            int
	CandidateFactor int
	RRFK            int
	MinFusedScore   float64
	RerankEnabled   bool
	Constraints     domain.GenerationConstraints
}

const (
	defaultTopK            = 10
	defaultCandidateFactor = 2
	defaultMinFusedScore   = 0.015
)

func (c QueryConfig) normalized() QueryConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = defaultTopK
	}
	if out.CandidateFactor <= 0 {
		out.CandidateFactor = defaultCandidateFactor
	}
	if out.RRFK <= 0 {
		out.RRFK = defaultRRFK
	}
	if out.MinFusedScore <= 0 {
		out.MinFusedScore = defaultMinFusedScore
	}
	return out
}

type QueryUseCase struct {
	embedder ports.Embedder
	lexical  ports.LexicalIndex
	semantic ports.SemanticIndex
	repo     ports.DocumentRepository
	composer *composer
	cfg      QueryConfig
}

func NewQueryUseCase(
	embedder ports.Embedder,
	lexical ports.LexicalIndex,
	semantic ports.SemanticIndex,
	repo ports.DocumentRepository,
	generator ports.Generator,
	cfg QueryConfig,
) *QueryUseCase {
	cfg = cfg.normalized()
	return &QueryUseCase{
		embedder: embedder,
		lexical:  lexical,
		semantic: semantic,
		repo:     repo,
		composer: &composer{generator: generator, constraints: cfg.Constraints},
		cfg:      cfg,
	}
}

// Ask runs the full query path: parallel lexical and semantic retrieval,
// reciprocal-rank fusion, relevance filtering, and guardrailed answer
// composition.
func (uc *QueryUseCase) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	evidence, err := uc.retrieveEvidence(ctx, question)
	if err != nil {
		return nil, err
	}
	if uc.cfg.RerankEnabled {
		evidence = rerankEvidence(question, evidence)
	}
	return uc.composer.Compose(ctx, question, evidence)
}

// Search exposes the fused candidate list without generation, for
// retrieval-only callers.
func (uc *QueryUseCase) Search(ctx context.Context, query string, k int) ([]domain.FusedCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is empty"))
	}
	if k <= 0 {
		k = uc.cfg.TopK
	}

	fused, err := uc.retrieveFused(ctx, query, k*uc.cfg.CandidateFactor)
	if err != nil {
		return nil, err
	}
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}

func (uc *QueryUseCase) retrieveEvidence(ctx context.Context, question string) ([]domain.EvidenceItem, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is empty"))
	}

	fused, err := uc.retrieveFused(ctx, question, uc.cfg.TopK*uc.cfg.CandidateFactor)
	if err != nil {
		return nil, err
	}

	filtered := filterByRelevance(fused, uc.cfg.MinFusedScore, uc.cfg.TopK)
	if len(filtered) == 0 {
		// Legitimate outcome: downstream signals "no evidence".
		return nil, nil
	}
	return uc.hydrateEvidence(ctx, filtered)
}

// retrieveFused runs both retrieval methods concurrently and joins on both
// before fusing. Either failure aborts the query.
func (uc *QueryUseCase) retrieveFused(ctx context.Context, query string, overfetch int) ([]domain.FusedCandidate, error) {
	type result struct {
		candidates []domain.RankedCandidate
		err        error
	}

	lexCh := make(chan result, 1)
	semCh := make(chan result, 1)

	go func() {
		candidates, err := uc.lexical.Search(ctx, query, overfetch)
		lexCh <- result{candidates: candidates, err: err}
	}()
	go func() {
		vector, err := uc.embedder.EmbedQuery(ctx, query)
		if err != nil {
			semCh <- result{err: domain.WrapError(domain.ErrEmbeddingService, "embed query", err)}
			return
		}
		candidates, err := uc.semantic.Search(ctx, vector, uc.embedder.Version(), overfetch)
		semCh <- result{candidates: candidates, err: err}
	}()

	lex, sem := <-lexCh, <-semCh
	if lex.err != nil {
		return nil, fmt.Errorf("lexical retrieval: %w", lex.err)
	}
	if sem.err != nil {
		return nil, fmt.Errorf("semantic retrieval: %w", sem.err)
	}

	return fuseRRF(lex.candidates, sem.candidates, uc.cfg.RRFK), nil
}

// filterByRelevance drops candidates below the threshold and truncates to
// maxResults. An empty result is expected, not an error.
func filterByRelevance(fused []domain.FusedCandidate, minScore float64, maxResults int) []domain.FusedCandidate {
	out := make([]domain.FusedCandidate, 0, len(fused))
	for _, f := range fused {
		if f.FusedScore < minScore {
			continue
		}
		out = append(out, f)
	}
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func (uc *QueryUseCase) hydrateEvidence(ctx context.Context, fused []domain.FusedCandidate) ([]domain.EvidenceItem, error) {
	ids := make([]string, 0, len(fused))
	for _, f := range fused {
		ids = append(ids, f.DocumentID)
	}

	docs, err := uc.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load evidence documents: %w", err)
	}
	byID := make(map[string]domain.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	out := make([]domain.EvidenceItem, 0, len(fused))
	for _, f := range fused {
		doc, ok := byID[f.DocumentID]
		if !ok {
			// Index and store briefly diverge mid-rebuild; skip rather
			// than fail the whole query.
			continue
		}
		out = append(out, domain.EvidenceItem{
			DocumentID: doc.ID,
			Snippet:    doc.AnonymizedText,
			FusedScore: f.FusedScore,
			Metadata:   doc.Metadata,
		})
	}
	return out, nil
}
