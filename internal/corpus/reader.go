// Package corpus reads the per-document outputs of the lemmatization step
// (token files and lemma files) and the raw pages they were extracted from.
package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
)

// LemmaRecord is one line of a lemma file: a lemma and the surface forms of
// it found in the document.
type LemmaRecord struct {
	Lemma string
	Forms []string
}

// Document is the normalised view of one corpus document.
type Document struct {
	ID     uint32
	Name   string
	Tokens []string
	Lemmas []LemmaRecord
}

// TokenCounts returns how many times each token occurs in the document.
func (d Document) TokenCounts() map[string]int {
	counts := make(map[string]int, len(d.Tokens))
	for _, t := range d.Tokens {
		counts[t]++
	}
	return counts
}

// Dir reads a corpus laid out as two directories holding one file per
// document with the same file name in each.
type Dir struct {
	TokensDir string
	LemmasDir string
	logger    *slog.Logger
}

func NewDir(tokensDir, lemmasDir string) *Dir {
	return &Dir{
		TokensDir: tokensDir,
		LemmasDir: lemmasDir,
		logger:    slog.Default().With("component", "corpus-reader"),
	}
}

// LemmaDocuments reads only the lemma files. Tokens are left empty.
func (d *Dir) LemmaDocuments(ctx context.Context) ([]Document, error) {
	names, err := ListFiles(d.LemmasDir)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(names))
	seen := make(map[uint32]string, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := newDocument(name, seen)
		if err != nil {
			return nil, err
		}
		if doc.Lemmas, err = readFile(filepath.Join(d.LemmasDir, name), ReadLemmas); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	d.logger.Info("lemma files read", "dir", d.LemmasDir, "documents", len(docs))
	return docs, nil
}

// Documents reads every token file together with the lemma file of the same
// name. The token directory defines the corpus; a missing lemma file is an
// error.
func (d *Dir) Documents(ctx context.Context) ([]Document, error) {
	names, err := ListFiles(d.TokensDir)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(names))
	seen := make(map[uint32]string, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := newDocument(name, seen)
		if err != nil {
			return nil, err
		}
		if doc.Tokens, err = readFile(filepath.Join(d.TokensDir, name), ReadTokens); err != nil {
			return nil, err
		}
		if doc.Lemmas, err = readFile(filepath.Join(d.LemmasDir, name), ReadLemmas); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	d.logger.Info("corpus read",
		"tokens_dir", d.TokensDir,
		"lemmas_dir", d.LemmasDir,
		"documents", len(docs),
	)
	return docs, nil
}

// ReadTokens parses a token file: one token per line, blank lines ignored.
func ReadTokens(r io.Reader) ([]string, error) {
	var tokens []string
	sc := newScanner(r)
	for sc.Scan() {
		if t := tokenizer.Normalize(sc.Text()); t != "" {
			tokens = append(tokens, t)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning tokens: %w", err)
	}
	return tokens, nil
}

// ReadLemmas parses a lemma file: "<lemma> <form> <form> ..." per line.
// Repeated lemmas are merged and their forms de-duplicated, keeping the
// order of first appearance.
func ReadLemmas(r io.Reader) ([]LemmaRecord, error) {
	var records []LemmaRecord
	index := make(map[string]int)
	seenForm := make(map[string]map[string]struct{})
	sc := newScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		lemma := tokenizer.Normalize(fields[0])
		i, ok := index[lemma]
		if !ok {
			i = len(records)
			index[lemma] = i
			records = append(records, LemmaRecord{Lemma: lemma})
			seenForm[lemma] = make(map[string]struct{})
		}
		for _, f := range fields[1:] {
			f = tokenizer.Normalize(f)
			if _, dup := seenForm[lemma][f]; dup {
				continue
			}
			seenForm[lemma][f] = struct{}{}
			records[i].Forms = append(records[i].Forms, f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning lemmas: %w", err)
	}
	return records, nil
}

// BuildDictionary registers every lemma record of docs in a query
// lemmatizer. Documents are visited in the given order.
func BuildDictionary(docs []Document, fallback tokenizer.Lemmatizer) *tokenizer.Dictionary {
	dict := tokenizer.NewDictionary(fallback)
	for _, doc := range docs {
		for _, rec := range doc.Lemmas {
			dict.Add(rec.Lemma, rec.Forms...)
		}
	}
	return dict
}

func newDocument(name string, seen map[uint32]string) (Document, error) {
	id, err := ParseID(name)
	if err != nil {
		return Document{}, err
	}
	if other, dup := seen[id]; dup {
		return Document{}, fmt.Errorf("documents %q and %q share id %d", other, name, id)
	}
	seen[id] = name
	return Document{ID: id, Name: name}, nil
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, nil
}

// ListFiles returns the regular file names of dir in ascending order,
// skipping hidden files and leftover .tmp files.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}
