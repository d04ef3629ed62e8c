package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/parser"
)

func testIndex() *index.InvertedIndex {
	idx := index.New()
	for term, ids := range map[string][]uint32{
		"a": {1, 2, 3},
		"b": {2, 3, 4},
		"c": {3, 4, 5},
		"d": {6},
	} {
		for _, id := range ids {
			idx.Add(term, id)
		}
	}
	return idx
}

func TestEvaluate(t *testing.T) {
	idx := testIndex()
	tests := []struct {
		query string
		want  []uint32
	}{
		{"a", []uint32{1, 2, 3}},
		{"a AND b", []uint32{2, 3}},
		{"a OR a", []uint32{1, 2, 3}},
		{"a or d", []uint32{1, 2, 3, 6}},
		{"NOT a", []uint32{4, 5, 6}},
		{"a OR b AND c", []uint32{1, 2, 3, 4}},
		{"(a OR b) AND c", []uint32{3, 4}},
		{"a AND NOT b", []uint32{1}},
		{"NOT NOT d", []uint32{6}},
		{"NOT (a OR b OR c)", []uint32{6}},
		{"unknown", []uint32{}},
		{"a AND unknown", []uint32{}},
		{"NOT unknown", []uint32{1, 2, 3, 4, 5, 6}},
		{"", []uint32{}},
		{"AND", []uint32{}},
		{"a OR", []uint32{}},
		{"NOT", []uint32{}},
		{"a b", []uint32{2, 3, 4}},
		{"!!! ???", []uint32{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Evaluate(tt.query, idx, nil)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Evaluate(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestEvaluateDoesNotMutateIndex(t *testing.T) {
	idx := testIndex()
	before := idx.Snapshot()
	for _, q := range []string{"a AND b", "a OR c", "NOT a", "a"} {
		Evaluate(q, idx, nil)
	}
	if diff := cmp.Diff(before, idx.Snapshot()); diff != "" {
		t.Errorf("index changed by queries (-before +after):\n%s", diff)
	}
}

func TestEvaluatePostfixClosedOps(t *testing.T) {
	idx := testIndex()
	items := []parser.Item{
		{Op: parser.OpOperand, Term: "a"},
		{Op: parser.OpOperand, Term: "c"},
		{Op: parser.OpAnd},
		{Op: parser.OpNot},
	}
	if diff := cmp.Diff([]uint32{1, 2, 4, 5, 6}, EvaluatePostfix(items, idx)); diff != "" {
		t.Errorf("EvaluatePostfix mismatch (-want +got):\n%s", diff)
	}
}

func TestBooleanSearch(t *testing.T) {
	b := NewBoolean(testIndex(), nil)
	res, err := b.Search(context.Background(), "a AND (b OR d)")
	if err != nil {
		t.Fatal(err)
	}
	want := &BooleanResult{
		Query:     "a AND (b OR d)",
		Postfix:   "a b d OR AND",
		TotalHits: 2,
		DocIDs:    []uint32{2, 3},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Search mismatch (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Search(ctx, "a"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
