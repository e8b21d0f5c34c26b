// Package tokenizer provides text tokenisation for the search engine.
// It case-folds input, splits on non-word boundaries, removes English
// stop-words and Porter-stems what remains, mirroring the normalisation the
// documentation generator applied when it wrote the index.
package tokenizer

import (
	"unicode"
	"unicode/utf8"

	"github.com/reiver/go-porterstemmer"
	"golang.org/x/text/cases"
)

// DefaultMinLength is the shortest word, in runes, that is indexed.
const DefaultMinLength = 3

var stopWords = map[string]struct{}{
	"a": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "for": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"near": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {},
	"such": {}, "that": {}, "the": {}, "their": {}, "then": {}, "there": {},
	"these": {}, "they": {}, "this": {}, "to": {}, "was": {}, "will": {},
	"with": {},
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Analyzer turns raw text into index terms. The zero value uses
// DefaultMinLength.
type Analyzer struct {
	MinLength int
}

func (a Analyzer) minLength() int {
	if a.MinLength <= 0 {
		return DefaultMinLength
	}
	return a.MinLength
}

// Tokenize breaks text into a slice of stemmed, case-folded Tokens with
// stop-words and short words removed. Positions count kept tokens only.
func (a Analyzer) Tokenize(text string) []Token {
	words := Words(text)
	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		term, ok := a.Normalize(word)
		if !ok {
			continue
		}
		tokens = append(tokens, Token{Term: term, Position: len(tokens)})
	}
	return tokens
}

// Terms returns the distinct terms of text in first-occurrence order.
func (a Analyzer) Terms(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range a.Tokenize(text) {
		if _, dup := seen[tok.Term]; dup {
			continue
		}
		seen[tok.Term] = struct{}{}
		out = append(out, tok.Term)
	}
	return out
}

// Normalize maps a single word to its index term. It reports false when
// the word is a stop-word or shorter than the minimum length.
func (a Analyzer) Normalize(word string) (string, bool) {
	folded := cases.Fold().String(word)
	if _, isStop := stopWords[folded]; isStop {
		return "", false
	}
	minLen := a.minLength()
	if utf8.RuneCountInString(folded) < minLen {
		return "", false
	}
	stemmed := stem(folded)
	if utf8.RuneCountInString(stemmed) < minLen {
		return folded, true
	}
	return stemmed, true
}

// stem returns the Porter stem of word, or word itself when the stemmer
// fails on it. go-porterstemmer indexes out of range on some short inputs
// such as "eed".
func stem(word string) (out string) {
	defer func() {
		if recover() != nil {
			out = word
		}
	}()
	return porterstemmer.StemString(word)
}

// IsStopWord reports whether the case-folded word is ignored by the index.
func IsStopWord(word string) bool {
	_, ok := stopWords[cases.Fold().String(word)]
	return ok
}

// Words splits text into runs of letters, digits and underscores.
func Words(text string) []string {
	var words []string
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Tokenize runs the default Analyzer over text.
func Tokenize(text string) []Token {
	return Analyzer{}.Tokenize(text)
}
