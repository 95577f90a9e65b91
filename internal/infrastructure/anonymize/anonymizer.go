package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

const pseudonymLength = 16

var errInvalidText = errors.New("text is not valid UTF-8")

// Anonymizer applies an ordered detector pipeline and substitutes every
// accepted match with its replacement token. All offsets are computed against
// the original string, so substitutions never shift later matches.
type Anonymizer struct {
	detectors []Detector
}

func New() *Anonymizer {
	return &Anonymizer{detectors: defaultDetectors}
}

// NewWithDetectors allows additional detectors (for example a person-name NER
// pass) to be composed with the built-in patterns.
func NewWithDetectors(detectors ...Detector) *Anonymizer {
	return &Anonymizer{detectors: detectors}
}

func (a *Anonymizer) Anonymize(raw string) (string, []domain.PIIMatch, error) {
	if !utf8.ValidString(raw) {
		return "", nil, domain.WrapError(domain.ErrInvalidInput, "anonymize", errInvalidText)
	}

	var all []domain.PIIMatch
	for _, d := range a.detectors {
		all = append(all, d.Detect(raw)...)
	}
	accepted := resolveOverlaps(a.detectors, all)
	if len(accepted) == 0 {
		return raw, nil, nil
	}

	var b strings.Builder
	b.Grow(len(raw))
	cursor := 0
	for _, m := range accepted {
		b.WriteString(raw[cursor:m.Start])
		b.WriteString(m.ReplacementToken)
		cursor = m.End
	}
	b.WriteString(raw[cursor:])
	return b.String(), accepted, nil
}

// resolveOverlaps keeps the earliest-starting match; on equal start the more
// specific detector wins, then the longer span. Matches overlapping an
// accepted one are dropped.
func resolveOverlaps(detectors []Detector, matches []domain.PIIMatch) []domain.PIIMatch {
	if len(matches) == 0 {
		return nil
	}
	spec := make(map[domain.PIIKind]int, len(detectors))
	for _, d := range detectors {
		if rd, ok := d.(*regexDetector); ok {
			spec[rd.kind] = rd.specificity
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		si, sj := specificityOf(spec, matches[i].Kind), specificityOf(spec, matches[j].Kind)
		if si != sj {
			return si > sj
		}
		return matches[i].End > matches[j].End
	})

	out := make([]domain.PIIMatch, 0, len(matches))
	lastEnd := 0
	for _, m := range matches {
		if m.Start < lastEnd {
			continue
		}
		out = append(out, m)
		lastEnd = m.End
	}
	return out
}

func specificityOf(spec map[domain.PIIKind]int, kind domain.PIIKind) int {
	if s, ok := spec[kind]; ok {
		return s
	}
	return 100
}

// pseudonym is an unsalted truncated digest: the same original value always
// maps to the same pseudonym, within and across runs.
func pseudonym(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:pseudonymLength]
}
