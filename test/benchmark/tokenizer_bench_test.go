package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The list data type has some more methods",
	"medium": `Python's standard library is very extensive, offering a wide range of
        facilities. The library contains built-in modules that provide access to
        system functionality such as file I/O that would otherwise be inaccessible
        to Python programmers, as well as modules written in Python that provide
        standardized solutions for many problems that occur in everyday programming.`,
	"long": strings.Repeat(`Lists are mutable sequences, typically used to store collections of
        homogeneous items. Dictionaries map hashable keys to arbitrary objects and
        preserve insertion order. Strings are immutable sequences of Unicode code
        points; the naïve café example shows why case folding and accent handling
        matter when the same words are indexed and queried. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tokenizer.Tokenize(text)
		}
	})
}

// BenchmarkNormalize measures per-word normalisation as done for every
// query word.
func BenchmarkNormalize(b *testing.B) {
	words := []string{
		"Running", "dictionaries", "searching", "indexing",
		"Tokenization", "normalization", "efficiently",
		"CAFÉ", "generators", "the",
	}
	var a tokenizer.Analyzer
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			_, _ = a.Normalize(w)
		}
	}
}

func BenchmarkTermsVaryingSize(b *testing.B) {
	baseWord := "python list dictionary module exception "
	var a tokenizer.Analyzer
	for _, size := range []int{10, 100, 500, 1000, 5000} {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = a.Terms(text)
			}
		})
	}
}
