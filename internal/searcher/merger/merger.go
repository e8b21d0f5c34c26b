// Package merger combines per-collection rankings into one ordered list.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
)

// Merge keeps the best limit documents across lists using ranker.Less.
// A limit <= 0 keeps everything.
func Merge(lists [][]ranker.ScoredDoc, limit int) []ranker.ScoredDoc {
	if limit <= 0 {
		for _, l := range lists {
			limit += len(l)
		}
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for _, results := range lists {
		for _, doc := range results {
			heap.Push(h, doc)
			if h.Len() > limit {
				heap.Pop(h)
			}
		}
	}
	result := make([]ranker.ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ranker.ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap: the worst-ranked document sits on top so it
// can be evicted first.
type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return ranker.Less(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
