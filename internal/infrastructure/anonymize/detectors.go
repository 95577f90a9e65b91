package anonymize

import (
	"regexp"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

// Detector finds PII spans in raw text. Implementations must not mutate the
// input and must report offsets into the original string. Context-aware
// detectors (for example a named-entity model for person names) plug in
// through this same contract.
type Detector interface {
	Detect(text string) []domain.PIIMatch
}

type regexDetector struct {
	kind        domain.PIIKind
	pattern     *regexp.Regexp
	replacement string
	// specificity orders detectors when two matches start at the same
	// offset; higher wins.
	specificity int
}

func (d *regexDetector) Detect(text string) []domain.PIIMatch {
	locs := d.pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]domain.PIIMatch, 0, len(locs))
	for _, loc := range locs {
		value := text[loc[0]:loc[1]]
		out = append(out, domain.PIIMatch{
			Kind:             d.kind,
			Start:            loc[0],
			End:              loc[1],
			OriginalValue:    value,
			ReplacementToken: d.replacement,
			Pseudonym:        pseudonym(value),
		})
	}
	return out
}

// Patterns follow German-market feedback conventions: +49/0049/0 phone
// prefixes, regional license plates, DD.MM.YY[YY] dates. The VIN alphabet
// excludes I, O and Q.
var defaultDetectors = []Detector{
	&regexDetector{
		kind:        domain.PIIVIN,
		pattern:     regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`),
		replacement: "[VIN]",
		specificity: 6,
	},
	&regexDetector{
		kind:        domain.PIIEmail,
		pattern:     regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		replacement: "[EMAIL]",
		specificity: 5,
	},
	&regexDetector{
		kind:        domain.PIIPhone,
		pattern:     regexp.MustCompile(`(?:\+49|\b0049|\b0)[\s-]?\d{2,4}[\s-]?\d{3,8}\b`),
		replacement: "[TELEFON]",
		specificity: 4,
	},
	&regexDetector{
		kind:        domain.PIILicensePlate,
		pattern:     regexp.MustCompile(`\b[A-ZÄÖÜ]{1,3}[\s-]?[A-Z]{1,2}[\s-]?\d{1,4}[EH]?\b`),
		replacement: "[KENNZEICHEN]",
		specificity: 3,
	},
	&regexDetector{
		kind:        domain.PIIDate,
		pattern:     regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{2,4}\b`),
		replacement: "[DATUM]",
		specificity: 2,
	},
}
