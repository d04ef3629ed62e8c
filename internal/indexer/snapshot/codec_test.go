package snapshot

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/errors"
)

func sampleIndex() *index.InvertedIndex {
	idx := index.New()
	idx.Add("kotlin", 30)
	idx.Add("kotlin", 4)
	idx.Add("java", 12)
	idx.Add("котлин", 4)
	return idx
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleIndex()); err != nil {
		t.Fatal(err)
	}
	want := "lemma, articles\njava, 12\nkotlin, 4 30\nкотлин, 4\n"
	if buf.String() != want {
		t.Errorf("Encode =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRoundTrip(t *testing.T) {
	idx := sampleIndex()
	var buf bytes.Buffer
	if err := Encode(&buf, idx); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Equal(idx) {
		t.Errorf("round trip changed the index: %v", got.Snapshot())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantLine int
	}{
		{"missing separator", "lemma, articles\njava 12\n", 2},
		{"non-integer id", "lemma, articles\njava, 12\nkotlin, 4 x\n", 3},
		{"missing header", "java, 12\n", 1},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Decode(strings.NewReader(tt.in))
			if idx != nil {
				t.Error("partial index returned")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if pe.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", pe.Line, tt.wantLine)
			}
			if !errors.Is(err, apperrors.ErrMalformedSnapshot) {
				t.Error("error does not wrap ErrMalformedSnapshot")
			}
		})
	}
}

func TestDecodeSkipsBlankLines(t *testing.T) {
	idx, err := Decode(strings.NewReader("\nlemma, articles\r\n\njava, 1 2\r\n\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := idx.Postings("java").GetCardinality(); got != 2 {
		t.Errorf("java postings = %d, want 2", got)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "inverted_index.csv")
	idx := sampleIndex()
	if err := WriteFile(path, idx); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !got.Equal(idx) {
		t.Error("file round trip changed the index")
	}
	if err := WriteFile(path, index.New()); err == nil {
		t.Error("expected error writing an empty index")
	}
}
