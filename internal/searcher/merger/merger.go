// Package merger selects the best ranked documents.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/ranker"
)

const DefaultLimit = 10

// Top returns the limit best documents of scored, best first. A non-positive
// limit falls back to DefaultLimit.
func Top(scored []ranker.ScoredDoc, limit int) []ranker.ScoredDoc {
	if limit <= 0 {
		limit = DefaultLimit
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for _, doc := range scored {
		heap.Push(h, doc)
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	result := make([]ranker.ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ranker.ScoredDoc)
	}
	return result
}

// scoredDocHeap keeps the worst retained document at the root.
type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	return ranker.Better(h[j], h[i])
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
