package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"list", "append", "x", "my_var", "42"}, Words("list.append(x) -- my_var=42!"))
	assert.Empty(t, Words("  ...  "))
	assert.Equal(t, []string{"café", "Über"}, Words("café, Über"))
}

func TestNormalize(t *testing.T) {
	a := Analyzer{}
	tests := []struct {
		word string
		want string
		ok   bool
	}{
		{"Python", "python", true},
		{"lists", "list", true},
		{"LIST", "list", true},
		{"the", "", false},
		{"The", "", false},
		{"into", "", false},
		{"go", "", false},
		{"x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got, ok := a.Normalize(tt.word)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSurvivesStemmerFailures(t *testing.T) {
	a := Analyzer{}
	for _, word := range []string{"eed", "EED", "feed", "agreed"} {
		var got string
		var ok bool
		assert.NotPanics(t, func() { got, ok = a.Normalize(word) }, word)
		assert.True(t, ok, word)
		assert.NotEmpty(t, got, word)
	}
	got, _ := a.Normalize("eed")
	assert.Equal(t, "eed", got)
	assert.Equal(t, []string{"eed", "python"}, a.Terms("eed python"))
}

func TestNormalizeMinLength(t *testing.T) {
	a := Analyzer{MinLength: 2}
	got, ok := a.Normalize("go")
	assert.True(t, ok)
	assert.Equal(t, "go", got)
}

func TestTokenizePositionsSkipDropped(t *testing.T) {
	toks := Tokenize("The list of Python lists")
	assert.Equal(t, []Token{
		{Term: "list", Position: 0},
		{Term: "python", Position: 1},
		{Term: "list", Position: 2},
	}, toks)
}

func TestTermsDeduplicates(t *testing.T) {
	assert.Equal(t, []string{"python", "list"}, Analyzer{}.Terms("python LIST Python lists"))
	assert.Empty(t, Analyzer{}.Terms("a an of"))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("THE"))
	assert.False(t, IsStopWord("python"))
}
