// Package ranker scores documents against a query vector by cosine
// similarity.
package ranker

import (
	"math"
	"sort"
)

// Vector is a sparse term -> weight mapping.
type Vector map[string]float64

// Norm returns the Euclidean length of v over all of its terms.
func Norm(v Vector) float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Candidate is a document vector with its precomputed norm.
type Candidate struct {
	ID      uint32
	Name    string
	Weights Vector
	Norm    float64
}

type ScoredDoc struct {
	DocID uint32  `json:"doc_id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Title string  `json:"title,omitempty"`
}

// Cosine returns dot(q, d) / (qNorm * dNorm) where the dot product runs over
// shared terms only and the norms cover the full vectors. A zero norm gives 0.
func Cosine(q Vector, qNorm float64, d Vector, dNorm float64) float64 {
	if qNorm == 0 || dNorm == 0 {
		return 0
	}
	small, large := q, d
	if len(large) < len(small) {
		small, large = large, small
	}
	var dot float64
	for term, w := range small {
		if ow, ok := large[term]; ok {
			dot += w * ow
		}
	}
	return math.Min(dot/(qNorm*dNorm), 1)
}

// Similarity is Cosine with both norms computed from the vectors.
func Similarity(a, b Vector) float64 {
	return Cosine(a, Norm(a), b, Norm(b))
}

// Score returns the candidates with a strictly positive similarity to query,
// in candidate order. NaN similarities are dropped.
func Score(query Vector, candidates []Candidate) []ScoredDoc {
	qNorm := Norm(query)
	result := make([]ScoredDoc, 0, len(candidates))
	for _, c := range candidates {
		s := Cosine(query, qNorm, c.Weights, c.Norm)
		if !(s > 0) {
			continue
		}
		result = append(result, ScoredDoc{DocID: c.ID, Name: c.Name, Score: s})
	}
	return result
}

// Better orders results by score descending, then by ascending document id.
func Better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// Sort orders docs in place, best first.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		return Better(docs[i], docs[j])
	})
}
