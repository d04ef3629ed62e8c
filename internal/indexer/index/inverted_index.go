package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
)

// InvertedIndex maps normalised lemmas to the set of documents containing
// them. It is filled once and read concurrently afterwards; bitmaps returned
// by Postings and Universe are shared and must not be modified.
type InvertedIndex struct {
	postings map[string]*roaring.Bitmap
	universe *roaring.Bitmap
}

func New() *InvertedIndex {
	return &InvertedIndex{
		postings: make(map[string]*roaring.Bitmap),
		universe: roaring.New(),
	}
}

// Build indexes the lemma records of docs. Surface forms are ignored.
func Build(docs []corpus.Document) *InvertedIndex {
	idx := New()
	for _, doc := range docs {
		for _, rec := range doc.Lemmas {
			idx.Add(rec.Lemma, doc.ID)
		}
	}
	return idx
}

// Add records that docID contains lemma. Empty lemmas are ignored.
func (x *InvertedIndex) Add(lemma string, docID uint32) {
	lemma = tokenizer.Normalize(lemma)
	if lemma == "" {
		return
	}
	bm, ok := x.postings[lemma]
	if !ok {
		bm = roaring.New()
		x.postings[lemma] = bm
	}
	bm.Add(docID)
	x.universe.Add(docID)
}

// Postings returns the documents containing lemma, or nil when the lemma is
// not indexed.
func (x *InvertedIndex) Postings(lemma string) *roaring.Bitmap {
	return x.postings[lemma]
}

// Universe returns every document id that appears in at least one posting.
func (x *InvertedIndex) Universe() *roaring.Bitmap {
	return x.universe
}

// Terms returns the indexed lemmas in ascending order.
func (x *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(x.postings))
	for t := range x.postings {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

func (x *InvertedIndex) Len() int {
	return len(x.postings)
}

func (x *InvertedIndex) Stats() Stats {
	s := Stats{Terms: len(x.postings), Documents: x.universe.GetCardinality()}
	for _, bm := range x.postings {
		s.Postings += bm.GetCardinality()
	}
	return s
}

// Snapshot returns every lemma with its sorted ids, ordered by lemma.
func (x *InvertedIndex) Snapshot() []TermEntry {
	terms := x.Terms()
	entries := make([]TermEntry, 0, len(terms))
	for _, t := range terms {
		entries = append(entries, TermEntry{Term: t, DocIDs: x.postings[t].ToArray()})
	}
	return entries
}

// Equal reports whether both indexes hold the same lemmas with the same
// postings.
func (x *InvertedIndex) Equal(other *InvertedIndex) bool {
	if len(x.postings) != len(other.postings) {
		return false
	}
	for t, bm := range x.postings {
		o, ok := other.postings[t]
		if !ok || !bm.Equals(o) {
			return false
		}
	}
	return true
}
