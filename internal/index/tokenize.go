// Package index implements the per-document retrieval indexes: a BM25
// inverted index over chunk tokens and an exhaustive-scan vector index over
// chunk embeddings. Indexes are immutable once built; a rebuild produces a
// fresh index that callers swap in atomically.
package index

import (
	"strings"
	"unicode"
)

// TokenizerConfig controls query and chunk tokenization.
type TokenizerConfig struct {
	// RemoveStopWords drops common English stop words. Disabled by default
	// to preserve recall for short domain-specific queries.
	RemoveStopWords bool
}

// Tokenize lowercases the text, strips punctuation, and splits on
// whitespace. Letters and digits are kept; every other rune becomes a
// separator.
func Tokenize(text string, cfg TokenizerConfig) []string {
	if text == "" {
		return nil
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	if !cfg.RemoveStopWords {
		return fields
	}

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "no": {}, "not": {}, "of": {},
	"on": {}, "or": {}, "such": {}, "that": {}, "the": {}, "their": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"to": {}, "was": {}, "will": {}, "with": {},
}
