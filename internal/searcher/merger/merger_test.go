package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
)

func TestMergeOrdersAcrossCollections(t *testing.T) {
	api := []ranker.ScoredDoc{
		{Collection: "api", DocID: 3, Score: 2, Weight: 10},
		{Collection: "api", DocID: 0, Score: 1, Weight: 5},
	}
	tutorial := []ranker.ScoredDoc{
		{Collection: "tutorial", DocID: 1, Score: 2, Weight: 20},
		{Collection: "tutorial", DocID: 0, Score: 1, Weight: 5},
	}

	got := Merge([][]ranker.ScoredDoc{tutorial, api}, 0)
	assert.Equal(t, []ranker.ScoredDoc{tutorial[0], api[0], api[1], tutorial[1]}, got)
}

func TestMergeLimit(t *testing.T) {
	list := []ranker.ScoredDoc{
		{DocID: 0, Score: 1, Weight: 5},
		{DocID: 1, Score: 3, Weight: 5},
		{DocID: 2, Score: 2, Weight: 5},
	}
	got := Merge([][]ranker.ScoredDoc{list}, 2)
	assert.Equal(t, []ranker.ScoredDoc{list[1], list[2]}, got)
}

func TestMergeEmpty(t *testing.T) {
	got := Merge(nil, 5)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}
