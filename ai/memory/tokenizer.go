// Package memory implements relevance ranking and tiered selection of
// memory records for LLM context injection.
package memory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLength is the shortest token kept after normalization.
const minTokenLength = 3

// stopwords are dropped before overlap scoring. Swedish function words plus
// the English ones that show up in mixed-language bookkeeping chats.
// Loaded once, never mutated at runtime.
var stopwords = func() map[string]struct{} {
	words := []string{
		// Swedish
		"och", "att", "det", "som", "for", "med", "den", "till", "inte",
		"har", "det", "var", "jag", "han", "hon", "men", "ett", "om",
		"hade", "vid", "kan", "ska", "nar", "vad", "hur", "dig", "din",
		"vara", "sig", "fran", "eller", "efter", "under", "over",
		// English
		"the", "and", "for", "are", "but", "not", "you", "all", "can",
		"her", "was", "one", "our", "out", "has", "have", "this", "that",
		"with", "from", "they", "will", "what", "when", "make", "like",
		"just", "about", "into", "than", "them", "some", "could", "there",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// accentFolder strips combining marks after canonical decomposition, so
// "fakturerad på måndag" and "fakturerad pa mandag" tokenize identically.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldAccents removes diacritics from s. On transform failure the input is
// returned unchanged; tokenization must never error.
func foldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return folded
}

// Tokenize normalizes text into the token list used for overlap scoring:
// lowercase, accents folded, non-alphanumerics stripped, short tokens and
// stopwords dropped. Order is preserved; duplicates are kept.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	normalized := foldAccents(strings.ToLower(text))
	normalized = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, normalized)

	var tokens []string
	for _, tok := range strings.Fields(normalized) {
		if len([]rune(tok)) < minTokenLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// TokenSet returns the unique tokens of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
