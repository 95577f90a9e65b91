package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

type embedderFake struct {
	vector  []float32
	err     error
	version string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *embedderFake) Version() string { return f.version }

type lexicalFake struct {
	candidates []domain.RankedCandidate
	err        error
	gotK       int
}

func (f *lexicalFake) Rebuild(context.Context, []domain.Document) error { return nil }

func (f *lexicalFake) Search(_ context.Context, _ string, k int) ([]domain.RankedCandidate, error) {
	f.gotK = k
	return f.candidates, f.err
}

type semanticFake struct {
	candidates []domain.RankedCandidate
	err        error
	gotVersion string
}

func (f *semanticFake) Rebuild(context.Context, []string, [][]float32, string) error { return nil }

func (f *semanticFake) Search(_ context.Context, _ []float32, version string, _ int) ([]domain.RankedCandidate, error) {
	f.gotVersion = version
	return f.candidates, f.err
}

type repoFake struct {
	docs    map[string]domain.Document
	created []domain.Document
	err     error
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.err != nil {
		return f.err
	}
	if f.docs == nil {
		f.docs = make(map[string]domain.Document)
	}
	f.docs[doc.ID] = *doc
	f.created = append(f.created, *doc)
	return nil
}

func (f *repoFake) GetByIDs(_ context.Context, ids []string) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := f.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *repoFake) ListAll(context.Context) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	return out, nil
}

func ranked(method domain.RetrievalMethod, ids ...string) []domain.RankedCandidate {
	out := make([]domain.RankedCandidate, len(ids))
	for i, id := range ids {
		out[i] = domain.RankedCandidate{DocumentID: id, Rank: i + 1, MethodScore: 1.0 / float64(i+1), SourceMethod: method}
	}
	return out
}

func queryFixture(lex *lexicalFake, sem *semanticFake, gen *generatorFake) (*QueryUseCase, *repoFake) {
	repo := &repoFake{docs: map[string]domain.Document{
		"d1": {ID: "d1", AnonymizedText: "Der Sprachassistent reagiert nicht mehr nach dem Update", Metadata: map[string]string{"vehicle_model": "ID.4"}},
		"d2": {ID: "d2", AnonymizedText: "Hey Volkswagen Befehl wird ignoriert", Metadata: map[string]string{"vehicle_model": "ID.4"}},
		"d3": {ID: "d3", AnonymizedText: "Die Sitzheizung ist angenehm", Metadata: map[string]string{"vehicle_model": "Golf"}},
	}}
	emb := &embedderFake{vector: []float32{0.1, 0.2}, version: "nomic-embed-text"}
	uc := NewQueryUseCase(emb, lex, sem, repo, gen, QueryConfig{TopK: 2})
	return uc, repo
}

func TestAskFusesAndAnswersWithCitations(t *testing.T) {
	lex := &lexicalFake{candidates: ranked(domain.MethodLexical, "d1", "d2")}
	sem := &semanticFake{candidates: ranked(domain.MethodSemantic, "d2", "d3")}
	gen := &generatorFake{response: "Befehle werden ignoriert [Q1], der Assistent reagiert nicht [Q2]."}
	uc, _ := queryFixture(lex, sem, gen)

	answer, err := uc.Ask(context.Background(), "Was ist mit dem Sprachassistenten?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !answer.Answerable {
		t.Fatalf("expected answerable, got %+v", answer)
	}
	// d2 appears in both lists, so it must lead the fused evidence.
	if len(answer.Citations) != 2 || answer.Citations[0].DocumentID != "d2" {
		t.Fatalf("unexpected citations: %+v", answer.Citations)
	}
	if sem.gotVersion != "nomic-embed-text" {
		t.Fatalf("semantic search must pin the embedder version, got %q", sem.gotVersion)
	}
	if lex.gotK != 4 {
		t.Fatalf("expected overfetch TopK*CandidateFactor=4, got %d", lex.gotK)
	}
}

func TestAskCitationsResolveToFilteredEvidence(t *testing.T) {
	lex := &lexicalFake{candidates: ranked(domain.MethodLexical, "d1", "d2", "d3")}
	sem := &semanticFake{candidates: ranked(domain.MethodSemantic, "d1", "d3")}
	gen := &generatorFake{response: "Antwort [Q1] und [Q2]."}
	uc, repo := queryFixture(lex, sem, gen)

	answer, err := uc.Ask(context.Background(), "Frage?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	for _, c := range answer.Citations {
		if _, ok := repo.docs[c.DocumentID]; !ok {
			t.Fatalf("citation %q does not resolve to a stored document", c.DocumentID)
		}
	}
}

func TestAskEmptyCorpusRefusesWithoutGeneration(t *testing.T) {
	lex := &lexicalFake{}
	sem := &semanticFake{}
	gen := &generatorFake{response: "nie"}
	uc, _ := queryFixture(lex, sem, gen)

	answer, err := uc.Ask(context.Background(), "Gibt es Beschwerden?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Answerable || answer.Outcome != domain.OutcomeRefusedNoEvidence {
		t.Fatalf("expected no-evidence refusal, got %+v", answer)
	}
	if answer.Text != RefusalPhrase {
		t.Fatalf("expected refusal phrase, got %q", answer.Text)
	}
	if gen.calls != 0 {
		t.Fatalf("generation service called %d times on empty corpus", gen.calls)
	}
}

func TestAskBelowThresholdCandidatesFiltered(t *testing.T) {
	// Ranks 8 and 9 in a single list score 1/68 and 1/69, below 0.015.
	lex := &lexicalFake{candidates: []domain.RankedCandidate{
		{DocumentID: "d1", Rank: 8, SourceMethod: domain.MethodLexical},
		{DocumentID: "d2", Rank: 9, SourceMethod: domain.MethodLexical},
	}}
	sem := &semanticFake{}
	gen := &generatorFake{response: "nie"}
	uc, _ := queryFixture(lex, sem, gen)

	answer, err := uc.Ask(context.Background(), "Frage?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Outcome != domain.OutcomeRefusedNoEvidence || gen.calls != 0 {
		t.Fatalf("weak candidates must be filtered before generation: %+v calls=%d", answer, gen.calls)
	}
}

func TestAskEmptyQuestionRejected(t *testing.T) {
	uc, _ := queryFixture(&lexicalFake{}, &semanticFake{}, &generatorFake{})

	if _, err := uc.Ask(context.Background(), "   "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAskIndexUnavailablePropagates(t *testing.T) {
	lex := &lexicalFake{err: domain.WrapError(domain.ErrIndexUnavailable, "lexical search", errors.New("no snapshot"))}
	uc, _ := queryFixture(lex, &semanticFake{}, &generatorFake{})

	_, err := uc.Ask(context.Background(), "Frage?")
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestAskEmbeddingFailureWrapped(t *testing.T) {
	lex := &lexicalFake{candidates: ranked(domain.MethodLexical, "d1")}
	sem := &semanticFake{}
	uc, _ := queryFixture(lex, sem, &generatorFake{})
	uc.embedder = &embedderFake{err: errors.New("connection refused")}

	_, err := uc.Ask(context.Background(), "Frage?")
	if !domain.IsKind(err, domain.ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
}

func TestAskSkipsDocumentsMissingFromStore(t *testing.T) {
	lex := &lexicalFake{candidates: ranked(domain.MethodLexical, "d1", "ghost")}
	sem := &semanticFake{candidates: ranked(domain.MethodSemantic, "ghost")}
	gen := &generatorFake{response: "Antwort [Q1]."}
	uc, _ := queryFixture(lex, sem, gen)

	answer, err := uc.Ask(context.Background(), "Frage?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	for _, c := range answer.Citations {
		if c.DocumentID == "ghost" {
			t.Fatalf("stale index entry leaked into citations")
		}
	}
}

func TestSearchTruncatesToRequestedK(t *testing.T) {
	lex := &lexicalFake{candidates: ranked(domain.MethodLexical, "d1", "d2", "d3")}
	sem := &semanticFake{candidates: ranked(domain.MethodSemantic, "d3", "d2", "d1")}
	uc, _ := queryFixture(lex, sem, &generatorFake{})

	fused, err := uc.Search(context.Background(), "Sprachassistent", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
	if fused[0].FusedScore < fused[1].FusedScore {
		t.Fatalf("results not sorted by fused score: %+v", fused)
	}
}

func TestSearchEmptyQueryRejected(t *testing.T) {
	uc, _ := queryFixture(&lexicalFake{}, &semanticFake{}, &generatorFake{})
	if _, err := uc.Search(context.Background(), "", 5); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
