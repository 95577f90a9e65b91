package lexical

import (
	"strings"
	"unicode"
)

// Normalizer turns text into index terms. Index and query sides must use the
// same normalizer version, otherwise recall degrades silently; Search enforces
// the pairing against the snapshot.
type Normalizer interface {
	Name() string
	Tokens(text string) []string
}

type simpleNormalizer struct {
	stopwords map[string]struct{}
}

// NewNormalizer lowercases, splits on non-alphanumeric runes, drops tokens
// shorter than two runes and common German/English stopwords.
func NewNormalizer() Normalizer {
	stop := make(map[string]struct{}, len(stopwordList))
	for _, w := range stopwordList {
		stop[w] = struct{}{}
	}
	return &simpleNormalizer{stopwords: stop}
}

func (n *simpleNormalizer) Name() string { return "simple-v1" }

func (n *simpleNormalizer) Tokens(text string) []string {
	if text == "" {
		return nil
	}
	out := make([]string, 0, 16)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		token := b.String()
		b.Reset()
		if len([]rune(token)) < 2 {
			return
		}
		if _, skip := n.stopwords[token]; skip {
			return
		}
		out = append(out, token)
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return out
}

var stopwordList = []string{
	// German
	"der", "die", "das", "ein", "eine", "und", "oder", "aber", "ist", "sind",
	"war", "hat", "bei", "mit", "von", "nach", "auf", "für", "den", "dem",
	"des", "im", "in", "an", "zu", "es", "sich", "auch", "wird", "wurde",
	"nur", "noch", "wie", "wenn", "dann", "mal", "schon", "sehr",
	// English
	"the", "a", "an", "and", "or", "but", "is", "are", "was", "were", "be",
	"been", "have", "has", "had", "do", "does", "did", "this", "that", "it",
	"of", "to", "for", "with", "on", "at", "by", "from", "as", "not", "no",
}
