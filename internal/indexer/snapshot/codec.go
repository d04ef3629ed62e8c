// Package snapshot stores an inverted index as a flat, diff-friendly text
// file: a header line followed by one "<lemma>, <id> <id> ..." line per lemma.
package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/errors"
)

const (
	Header    = "lemma, articles"
	separator = ", "
)

// ParseError reports the snapshot line that could not be decoded.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("snapshot line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Encode writes idx to w, lemmas and ids in ascending order.
func Encode(w io.Writer, idx *index.InvertedIndex) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	buf := make([]byte, 0, 256)
	for _, entry := range idx.Snapshot() {
		buf = append(buf[:0], entry.Term...)
		buf = append(buf, separator...)
		for i, id := range entry.DocIDs {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = strconv.AppendUint(buf, uint64(id), 10)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("writing lemma %q: %w", entry.Term, err)
		}
	}
	return bw.Flush()
}

// Decode reads a snapshot produced by Encode. Any malformed line aborts the
// decode with a *ParseError; no partial index is returned.
func Decode(r io.Reader) (*index.InvertedIndex, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	idx := index.New()
	lineNo := 0
	sawHeader := false
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !sawHeader {
			if line != Header {
				return nil, &ParseError{Line: lineNo, Text: line, Err: fmt.Errorf("%w: missing header", apperrors.ErrMalformedSnapshot)}
			}
			sawHeader = true
			continue
		}
		lemma, ids, ok := strings.Cut(line, separator)
		if !ok || lemma == "" {
			return nil, &ParseError{Line: lineNo, Text: line, Err: fmt.Errorf("%w: missing separator", apperrors.ErrMalformedSnapshot)}
		}
		for _, field := range strings.Fields(ids) {
			id, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Text: line, Err: fmt.Errorf("%w: id %q is not an integer", apperrors.ErrMalformedSnapshot, field)}
			}
			idx.Add(lemma, uint32(id))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}
	if !sawHeader {
		return nil, &ParseError{Line: 0, Err: fmt.Errorf("%w: empty snapshot", apperrors.ErrMalformedSnapshot)}
	}
	return idx, nil
}
