package similarity

import (
	"strings"
	"unicode"
)

// tokenizeWords lowercases and splits on anything that is not a letter or a
// digit. Used for shingling, so minor punctuation and whitespace edits do not
// change the token stream.
func tokenizeWords(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 64)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// tokenizeTerms produces vector-space terms: lowercase alphabetic sequences
// of length >= 2 with English stop-words removed.
func tokenizeTerms(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 64)
	var b strings.Builder
	flush := func() {
		if b.Len() < 2 {
			b.Reset()
			return
		}
		term := b.String()
		b.Reset()
		if _, stop := stopWords[term]; stop {
			return
		}
		out = append(out, term)
	}
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}
