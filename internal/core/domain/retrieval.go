package domain

type RetrievalMethod string

const (
	MethodLexical  RetrievalMethod = "lexical"
	MethodSemantic RetrievalMethod = "semantic"
)

// RankedCandidate is one entry of a single retrieval method's ranked list.
// MethodScore is raw and not comparable across methods.
type RankedCandidate struct {
	DocumentID   string          `json:"document_id"`
	Rank         int             `json:"rank"`
	MethodScore  float64         `json:"method_score"`
	SourceMethod RetrievalMethod `json:"source_method"`
}

// FusedCandidate is the result of reciprocal-rank fusion over the per-method
// lists. LexicalScore carries the raw lexical score for deterministic
// tie-breaking.
type FusedCandidate struct {
	DocumentID          string            `json:"document_id"`
	FusedScore          float64           `json:"fused_score"`
	LexicalScore        float64           `json:"-"`
	ContributingMethods []RetrievalMethod `json:"contributing_methods"`
}

// EvidenceItem is one filtered, threshold-passing piece of evidence exposed to
// the generator and to the citation UI.
type EvidenceItem struct {
	DocumentID string            `json:"document_id"`
	Snippet    string            `json:"snippet"`
	FusedScore float64           `json:"fused_score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type AnswerOutcome string

const (
	OutcomeAnswered          AnswerOutcome = "answered"
	OutcomeRefusedNoEvidence AnswerOutcome = "refused_no_evidence"
	OutcomeRefusedUncited    AnswerOutcome = "refused_uncited_output"
)

// ConflictFlag marks a pair of documents whose evidence appears contradictory.
type ConflictFlag struct {
	DocumentA string `json:"document_a"`
	DocumentB string `json:"document_b"`
}

// Answer is the immutable result of one query. A refusal is a normal,
// well-formed Answer, never an error.
type Answer struct {
	Text          string         `json:"text"`
	Answerable    bool           `json:"answerable"`
	Outcome       AnswerOutcome  `json:"outcome"`
	Citations     []EvidenceItem `json:"citations"`
	ConflictFlags []ConflictFlag `json:"conflict_flags,omitempty"`
}

// GenerationConstraints are the decoding parameters passed to the external
// completion service.
type GenerationConstraints struct {
	MaxOutputTokens int
	Temperature     float64
}
