package ranker

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCosineBounds(t *testing.T) {
	tests := []struct {
		name string
		a, b Vector
		want func(float64) bool
	}{
		{"identical", Vector{"x": 0.3, "y": 0.4}, Vector{"x": 0.3, "y": 0.4}, func(s float64) bool { return math.Abs(s-1) < 1e-12 }},
		{"shared term", Vector{"x": 1}, Vector{"x": 0.2, "y": 5}, func(s float64) bool { return s > 0 && s <= 1 }},
		{"disjoint", Vector{"x": 1}, Vector{"y": 1}, func(s float64) bool { return s == 0 }},
		{"zero norm query", Vector{"x": 0}, Vector{"x": 1}, func(s float64) bool { return s == 0 }},
		{"empty document", Vector{"x": 1}, Vector{}, func(s float64) bool { return s == 0 }},
		{"both empty", Vector{}, Vector{}, func(s float64) bool { return s == 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Similarity(tt.a, tt.b)
			if !tt.want(s) {
				t.Errorf("Similarity = %v", s)
			}
			if r := Similarity(tt.b, tt.a); r != s {
				t.Errorf("Similarity not symmetric: %v vs %v", s, r)
			}
		})
	}
}

func TestCosineUsesFullNorms(t *testing.T) {
	q := Vector{"x": 1}
	d := Vector{"x": 3, "y": 4}
	// dot = 3, |q| = 1, |d| = 5
	if got := Cosine(q, Norm(q), d, Norm(d)); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("Cosine = %v, want 0.6", got)
	}
}

func TestScoreDropsNonPositive(t *testing.T) {
	q := Vector{"cat": 1}
	cands := []Candidate{
		{ID: 1, Name: "a_1", Weights: Vector{"dog": 1}},
		{ID: 2, Name: "a_2", Weights: Vector{"cat": 0.5}},
		{ID: 3, Name: "a_3", Weights: Vector{"cat": 0}},
		{ID: 4, Name: "a_4", Weights: Vector{"cat": math.NaN()}},
	}
	for i := range cands {
		cands[i].Norm = Norm(cands[i].Weights)
	}
	got := Score(q, cands)
	want := []ScoredDoc{{DocID: 2, Name: "a_2", Score: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Score mismatch (-want +got):\n%s", diff)
	}
}

func TestSortTieBreak(t *testing.T) {
	docs := []ScoredDoc{
		{DocID: 9, Score: 0.5},
		{DocID: 3, Score: 0.9},
		{DocID: 4, Score: 0.5},
	}
	Sort(docs)
	got := []uint32{docs[0].DocID, docs[1].DocID, docs[2].DocID}
	if diff := cmp.Diff([]uint32{3, 4, 9}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}
