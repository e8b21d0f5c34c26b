// Package parser turns a free-text query into a QueryPlan using the same
// normalisation as the index build. A whitespace-separated word prefixed
// with '-' excludes every document matching its terms.
package parser

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type QueryPlan struct {
	Terms        []string `json:"terms"`
	ExcludeTerms []string `json:"exclude_terms,omitempty"`
	RawQuery     string   `json:"raw_query"`
}

// Empty reports whether the plan has nothing to match.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Canonical renders the plan independent of token order and duplicates.
// Queries with equal canonical forms produce identical results.
func (p *QueryPlan) Canonical() string {
	terms := append([]string(nil), p.Terms...)
	excludes := append([]string(nil), p.ExcludeTerms...)
	sort.Strings(terms)
	sort.Strings(excludes)
	out := strings.Join(terms, ",")
	if len(excludes) > 0 {
		out += "|-" + strings.Join(excludes, ",")
	}
	return out
}

type Parser struct {
	analyzer tokenizer.Analyzer
}

func New(analyzer tokenizer.Analyzer) *Parser {
	return &Parser{analyzer: analyzer}
}

// Parse never fails: empty or punctuation-only input yields an empty plan.
func (p *Parser) Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		RawQuery:     query,
	}
	seen := make(map[string]struct{})
	excluded := make(map[string]struct{})
	for _, word := range strings.Fields(query) {
		exclude := false
		if strings.HasPrefix(word, "-") && len(word) > 1 {
			exclude = true
			word = word[1:]
		}
		for _, tok := range p.analyzer.Tokenize(word) {
			if exclude {
				if _, dup := excluded[tok.Term]; !dup {
					excluded[tok.Term] = struct{}{}
					plan.ExcludeTerms = append(plan.ExcludeTerms, tok.Term)
				}
				continue
			}
			if _, dup := seen[tok.Term]; !dup {
				seen[tok.Term] = struct{}{}
				plan.Terms = append(plan.Terms, tok.Term)
			}
		}
	}
	return plan
}

// Parse parses query with the default analyzer.
func Parse(query string) *QueryPlan {
	return New(tokenizer.Analyzer{}).Parse(query)
}
