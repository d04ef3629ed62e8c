// Package vector serves ranked free-text queries over persisted TF-IDF
// vectors.
package vector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/errors"
)

// Row is one parsed line of a vector file.
type Row struct {
	Term  string
	IDF   float64
	TFIDF float64
}

// Store holds every document vector and the global IDF table. It is
// immutable once loaded.
type Store struct {
	docs   []ranker.Candidate
	idf    map[string]float64
	byTerm map[string][]int
}

type loadedFile struct {
	id   uint32
	name string
	rows []Row
}

// Load reads every vector file of dir with up to workers files in flight.
// Files are merged in ascending name order, and the first IDF seen for a
// term is kept.
func Load(ctx context.Context, dir string, workers int) (*Store, error) {
	logger := slog.Default().With("component", "vector-loader")
	names, err := corpus.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	files := make([]loadedFile, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			id, err := corpus.ParseID(name)
			if err != nil {
				return err
			}
			rows, err := readVectorFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			files[i] = loadedFile{id: id, name: name, rows: rows}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading vectors from %s: %w", dir, err)
	}

	s, err := newStore(files)
	if err != nil {
		return nil, err
	}
	logger.Info("vectors loaded", "dir", dir, "documents", s.Len(), "terms", len(s.idf))
	return s, nil
}

// NewStore builds a store from documents already in memory, keyed by file
// name. It applies the same first-IDF-wins rule as Load.
func NewStore(vectors map[string][]Row) (*Store, error) {
	names := make([]string, 0, len(vectors))
	for name := range vectors {
		names = append(names, name)
	}
	sort.Strings(names)
	files := make([]loadedFile, 0, len(names))
	for _, name := range names {
		id, err := corpus.ParseID(name)
		if err != nil {
			return nil, err
		}
		files = append(files, loadedFile{id: id, name: name, rows: vectors[name]})
	}
	return newStore(files)
}

func newStore(files []loadedFile) (*Store, error) {
	s := &Store{
		docs:   make([]ranker.Candidate, 0, len(files)),
		idf:    make(map[string]float64),
		byTerm: make(map[string][]int),
	}
	seen := make(map[uint32]string, len(files))
	for _, f := range files {
		if other, dup := seen[f.id]; dup {
			return nil, fmt.Errorf("vector files %q and %q share id %d", other, f.name, f.id)
		}
		seen[f.id] = f.name
		weights := make(ranker.Vector, len(f.rows))
		for _, r := range f.rows {
			if !validWeight(r.IDF) || !validWeight(r.TFIDF) {
				return nil, fmt.Errorf("%w: %s term %q has idf %v weight %v",
					apperrors.ErrMalformedVector, f.name, r.Term, r.IDF, r.TFIDF)
			}
			weights[r.Term] = r.TFIDF
			if _, ok := s.idf[r.Term]; !ok {
				s.idf[r.Term] = r.IDF
			}
		}
		pos := len(s.docs)
		for term := range weights {
			s.byTerm[term] = append(s.byTerm[term], pos)
		}
		s.docs = append(s.docs, ranker.Candidate{
			ID:      f.id,
			Name:    f.name,
			Weights: weights,
			Norm:    ranker.Norm(weights),
		})
	}
	return s, nil
}

// ParseVector reads "<term> <idf> <tf_idf>" lines. Blank lines are skipped.
func ParseVector(r io.Reader) ([]Row, error) {
	var rows []Row
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d has %d fields", apperrors.ErrMalformedVector, lineNo, len(fields))
		}
		idf, ok := parseWeight(fields[1])
		if !ok {
			return nil, fmt.Errorf("%w: line %d idf %q", apperrors.ErrMalformedVector, lineNo, fields[1])
		}
		w, ok := parseWeight(fields[2])
		if !ok {
			return nil, fmt.Errorf("%w: line %d weight %q", apperrors.ErrMalformedVector, lineNo, fields[2])
		}
		rows = append(rows, Row{Term: tokenizer.Normalize(fields[0]), IDF: idf, TFIDF: w})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning vector: %w", err)
	}
	return rows, nil
}

// parseWeight accepts finite, non-negative numbers only.
func parseWeight(field string) (float64, bool) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || !validWeight(v) {
		return 0, false
	}
	return v, true
}

func validWeight(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func readVectorFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vector file: %w", err)
	}
	defer f.Close()
	rows, err := ParseVector(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

func (s *Store) Len() int {
	return len(s.docs)
}

func (s *Store) Terms() int {
	return len(s.idf)
}

// IDF returns the canonical IDF of term.
func (s *Store) IDF(term string) (float64, bool) {
	v, ok := s.idf[term]
	return v, ok
}

// Vectorize builds the query vector of query. Words are lemmatized with lem
// and dropped when absent from the IDF table; tf is taken over the kept
// words only.
func (s *Store) Vectorize(query string, lem tokenizer.Lemmatizer) ranker.Vector {
	if lem == nil {
		lem = tokenizer.Lower{}
	}
	counts := make(map[string]int)
	kept := 0
	for _, w := range tokenizer.Words(query) {
		term := lem.Lemma(w)
		if _, ok := s.idf[term]; !ok {
			continue
		}
		counts[term]++
		kept++
	}
	vec := make(ranker.Vector, len(counts))
	for term, n := range counts {
		vec[term] = float64(n) / float64(kept) * s.idf[term]
	}
	return vec
}

// Candidates returns the documents sharing at least one term with q, in
// load order.
func (s *Store) Candidates(q ranker.Vector) []ranker.Candidate {
	marked := make(map[int]struct{})
	for term := range q {
		for _, pos := range s.byTerm[term] {
			marked[pos] = struct{}{}
		}
	}
	positions := make([]int, 0, len(marked))
	for pos := range marked {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	out := make([]ranker.Candidate, len(positions))
	for i, pos := range positions {
		out[i] = s.docs[pos]
	}
	return out
}
