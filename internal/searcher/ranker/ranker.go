// Package ranker scores documents by query-token coverage. A document's
// score is the number of distinct query tokens it matched. Its weight sums,
// per matched token, the best field weight that token reached in the
// document. Results are ordered by score, then weight, then document id.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

// Field is where a query token matched.
type Field int

const (
	FieldTerm Field = iota
	FieldPartialTerm
	FieldTitle
	FieldPartialTitle
)

// Weights assigns a boost to each match field.
type Weights struct {
	Term         float64
	PartialTerm  float64
	Title        float64
	PartialTitle float64
}

func DefaultWeights() Weights {
	return Weights{Term: 5, PartialTerm: 2, Title: 15, PartialTitle: 7}
}

func (w Weights) For(f Field) float64 {
	switch f {
	case FieldPartialTerm:
		return w.PartialTerm
	case FieldTitle:
		return w.Title
	case FieldPartialTitle:
		return w.PartialTitle
	default:
		return w.Term
	}
}

type ScoredDoc struct {
	Collection string      `json:"collection,omitempty"`
	DocID      index.DocID `json:"doc_id"`
	DocName    string      `json:"docname"`
	Title      string      `json:"title"`
	Score      int         `json:"score"`
	Weight     float64     `json:"weight"`
}

// Less reports whether a ranks ahead of b.
func Less(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if a.Collection != b.Collection {
		return a.Collection < b.Collection
	}
	return a.DocID < b.DocID
}

func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool { return Less(docs[i], docs[j]) })
}

// Accumulator collects per-token matches for one collection.
type Accumulator struct {
	weights Weights
	matches map[index.DocID]map[string]float64
	removed map[index.DocID]struct{}
}

func NewAccumulator(w Weights) *Accumulator {
	return &Accumulator{
		weights: w,
		matches: make(map[index.DocID]map[string]float64),
		removed: make(map[index.DocID]struct{}),
	}
}

// Add records that token matched docs in field. A token matching the same
// document through several fields keeps the highest weight.
func (a *Accumulator) Add(token string, field Field, docs []index.DocID) {
	weight := a.weights.For(field)
	for _, d := range docs {
		tokens, ok := a.matches[d]
		if !ok {
			tokens = make(map[string]float64)
			a.matches[d] = tokens
		}
		if prev, seen := tokens[token]; !seen || weight > prev {
			tokens[token] = weight
		}
	}
}

// Exclude removes docs from the result regardless of other matches.
func (a *Accumulator) Exclude(docs []index.DocID) {
	for _, d := range docs {
		a.removed[d] = struct{}{}
	}
}

// Rank returns the ordered matches truncated to limit (no truncation when
// limit <= 0) and the number of matching documents before truncation.
func (a *Accumulator) Rank(limit int) ([]ScoredDoc, int) {
	out := make([]ScoredDoc, 0, len(a.matches))
	for d, tokens := range a.matches {
		if _, gone := a.removed[d]; gone {
			continue
		}
		var weight float64
		for _, w := range tokens {
			weight += w
		}
		out = append(out, ScoredDoc{DocID: d, Score: len(tokens), Weight: weight})
	}
	Sort(out)
	total := len(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total
}
