package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
	"github.com/mklnsk/feedback-insight/internal/core/ports"
)

// RefusalPhrase is the fixed phrase the generator is instructed to emit when
// the evidence does not support an answer. Post-validation scans for it, so
// a generator that refuses in prose cannot smuggle citations past the
// guardrail.
const RefusalPhrase = "Diese Information liegt nicht vor."

var citationMarkerPattern = regexp.MustCompile(`\[Q(\d+)\]`)

// composer turns a filtered evidence set into a grounded Answer. It is a
// small state machine: no evidence short-circuits to a refusal before any
// generation call; a generation that refuses or fails citation validation is
// converted into the corresponding refusal outcome, never returned raw.
type composer struct {
	generator   ports.Generator
	constraints domain.GenerationConstraints
}

func (c *composer) Compose(ctx context.Context, question string, evidence []domain.EvidenceItem) (*domain.Answer, error) {
	if len(evidence) == 0 {
		return refusalAnswer(domain.OutcomeRefusedNoEvidence, nil), nil
	}

	conflicts := detectConflicts(evidence)

	prompt := buildGroundedPrompt(question, evidence)
	generated, err := c.generator.Complete(ctx, prompt, c.constraints)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationService, "compose answer", err)
	}

	if strings.Contains(generated, RefusalPhrase) {
		// Citations in a refusing output are spurious by definition.
		return refusalAnswer(domain.OutcomeRefusedNoEvidence, conflicts), nil
	}

	citations, ok := resolveCitations(generated, evidence)
	if !ok || len(citations) == 0 {
		return refusalAnswer(domain.OutcomeRefusedUncited, conflicts), nil
	}

	return &domain.Answer{
		Text:          strings.TrimSpace(generated),
		Answerable:    true,
		Outcome:       domain.OutcomeAnswered,
		Citations:     citations,
		ConflictFlags: conflicts,
	}, nil
}

func refusalAnswer(outcome domain.AnswerOutcome, conflicts []domain.ConflictFlag) *domain.Answer {
	return &domain.Answer{
		Text:          RefusalPhrase,
		Answerable:    false,
		Outcome:       outcome,
		Citations:     []domain.EvidenceItem{},
		ConflictFlags: conflicts,
	}
}

// resolveCitations extracts the citation markers actually used and maps them
// back to evidence items, ordered by first use and deduplicated. A marker
// outside the evidence range fails validation: uncited or mis-cited
// generation is not returned to the caller.
func resolveCitations(generated string, evidence []domain.EvidenceItem) ([]domain.EvidenceItem, bool) {
	markers := citationMarkerPattern.FindAllStringSubmatch(generated, -1)
	if len(markers) == 0 {
		return nil, false
	}

	seen := make(map[int]bool, len(markers))
	out := make([]domain.EvidenceItem, 0, len(markers))
	for _, m := range markers {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(evidence) {
			return nil, false
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, evidence[n-1])
	}
	return out, true
}

// buildGroundedPrompt tags every evidence snippet with its citation marker and
// instructs the generator to answer only from the supplied evidence, cite
// every claim, and fall back to the fixed refusal phrase.
func buildGroundedPrompt(question string, evidence []domain.EvidenceItem) string {
	var b strings.Builder
	for i, item := range evidence {
		b.WriteString(fmt.Sprintf("[Q%d]", i+1))
		if model := item.Metadata["vehicle_model"]; model != "" {
			b.WriteString(" modell=" + model)
		}
		if label := item.Metadata["label"]; label != "" {
			b.WriteString(" kategorie=" + label)
		}
		b.WriteString("\n")
		b.WriteString(item.Snippet)
		b.WriteString("\n\n")
	}

	return fmt.Sprintf(`Du bist ein Analyst für Kundenfeedback zu Fahrzeugen.

REGELN:
1. Beantworte die Frage AUSSCHLIESSLICH auf Basis der Quellen unten.
2. Zitiere jede Aussage mit ihrer Quellen-Markierung, z.B. [Q1] oder [Q2].
3. Wenn die Quellen die Frage nicht beantworten, antworte exakt: %s
4. Bleibe sachlich und faktenbasiert.

Quellen:
%s
Frage: %s
`, RefusalPhrase, b.String(), question)
}
