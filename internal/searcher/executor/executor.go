// Package executor evaluates boolean queries against an inverted index.
package executor

import (
	"context"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/parser"
)

// EvaluatePostfix runs items on a set stack: AND intersects, OR unions and
// NOT complements against every document present in the index. Unknown
// terms yield the empty set and a malformed sequence yields an empty result.
// The returned ids are ascending.
func EvaluatePostfix(items []parser.Item, idx *index.InvertedIndex) []uint32 {
	bm := evaluate(items, idx)
	if bm == nil || bm.IsEmpty() {
		return []uint32{}
	}
	return bm.ToArray()
}

// Evaluate tokenizes, parses and evaluates query.
func Evaluate(query string, idx *index.InvertedIndex, lem tokenizer.Lemmatizer) []uint32 {
	return EvaluatePostfix(parser.ToPostfix(parser.Tokenize(query, lem)), idx)
}

func evaluate(items []parser.Item, idx *index.InvertedIndex) *roaring.Bitmap {
	stack := make([]*roaring.Bitmap, 0, len(items))
	pop := func() *roaring.Bitmap {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return top
	}
	for _, it := range items {
		switch it.Op {
		case parser.OpOperand:
			bm := idx.Postings(it.Term)
			if bm == nil {
				bm = roaring.New()
			}
			stack = append(stack, bm)
		case parser.OpAnd, parser.OpOr:
			if len(stack) < 2 {
				return nil
			}
			right := pop()
			left := pop()
			if it.Op == parser.OpAnd {
				stack = append(stack, roaring.And(left, right))
			} else {
				stack = append(stack, roaring.Or(left, right))
			}
		case parser.OpNot:
			if len(stack) < 1 {
				return nil
			}
			stack = append(stack, roaring.AndNot(idx.Universe(), pop()))
		}
	}
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// BooleanResult is the answer to one boolean query.
type BooleanResult struct {
	Query     string   `json:"query"`
	Postfix   string   `json:"postfix"`
	TotalHits int      `json:"total_hits"`
	DocIDs    []uint32 `json:"doc_ids"`
}

// Boolean serves boolean queries over a loaded index.
type Boolean struct {
	idx    *index.InvertedIndex
	lem    tokenizer.Lemmatizer
	logger *slog.Logger
}

func NewBoolean(idx *index.InvertedIndex, lem tokenizer.Lemmatizer) *Boolean {
	if lem == nil {
		lem = tokenizer.Lower{}
	}
	return &Boolean{
		idx:    idx,
		lem:    lem,
		logger: slog.Default().With("component", "boolean-executor"),
	}
}

// Search evaluates query. It only fails when ctx is already done.
func (b *Boolean) Search(ctx context.Context, query string) (*BooleanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	postfix := parser.ToPostfix(parser.Tokenize(query, b.lem))
	ids := EvaluatePostfix(postfix, b.idx)
	b.logger.Debug("boolean query executed",
		"query", query,
		"postfix", parser.Format(postfix),
		"results", len(ids),
	)
	return &BooleanResult{
		Query:     query,
		Postfix:   parser.Format(postfix),
		TotalHits: len(ids),
		DocIDs:    ids,
	}, nil
}

func (b *Boolean) Index() *index.InvertedIndex {
	return b.idx
}
