package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		want    uint32
		wantErr bool
	}{
		{"article_812345.txt", 812345, false},
		{"some_long_name_7.html", 7, false},
		{"42.txt", 42, false},
		{"/abs/path/article_3.txt", 3, false},
		{"article.txt", 0, true},
		{"article_x1.txt", 0, true},
		{"article_-1.txt", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.name)
		if tt.wantErr {
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("ParseID(%q) error = %v, want ErrInvalidInput", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseID(%q) = %d, %v; want %d", tt.name, got, err, tt.want)
		}
	}
}

func TestReadLemmasMergesRepeats(t *testing.T) {
	in := "Cat cats Cat\n\ndog dogs\ncat cats kitty\n"
	got, err := ReadLemmas(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []LemmaRecord{
		{Lemma: "cat", Forms: []string{"cats", "cat", "kitty"}},
		{Lemma: "dog", Forms: []string{"dogs"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadLemmas mismatch (-want +got):\n%s", diff)
	}
}

func TestDocuments(t *testing.T) {
	root := t.TempDir()
	tokens := filepath.Join(root, "tokens")
	lemmas := filepath.Join(root, "lemmas")
	writeFile(t, tokens, "article_2.txt", "dog\nDogs\n\ndog\n")
	writeFile(t, lemmas, "article_2.txt", "dog dog dogs\n")
	writeFile(t, tokens, "article_1.txt", "cat\n")
	writeFile(t, lemmas, "article_1.txt", "cat cat\n")
	writeFile(t, tokens, ".hidden", "ignored\n")

	docs, err := NewDir(tokens, lemmas).Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].Name != "article_1.txt" || docs[0].ID != 1 {
		t.Errorf("first document = %s/%d", docs[0].Name, docs[0].ID)
	}
	if diff := cmp.Diff(map[string]int{"dog": 2, "dogs": 1}, docs[1].TokenCounts()); diff != "" {
		t.Errorf("TokenCounts mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentsMissingLemmaFile(t *testing.T) {
	root := t.TempDir()
	tokens := filepath.Join(root, "tokens")
	lemmas := filepath.Join(root, "lemmas")
	writeFile(t, tokens, "article_1.txt", "cat\n")
	writeFile(t, lemmas, "article_9.txt", "dog dog\n")

	if _, err := NewDir(tokens, lemmas).Documents(context.Background()); err == nil {
		t.Fatal("expected error for missing lemma file")
	}
}

func TestDocumentsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "article_1.txt", "cat cat\n")
	writeFile(t, dir, "page_1.txt", "dog dog\n")
	if _, err := NewDir("", dir).LemmaDocuments(context.Background()); err == nil {
		t.Fatal("expected error for colliding ids")
	}
}

func TestBuildDictionary(t *testing.T) {
	docs := []Document{
		{Lemmas: []LemmaRecord{{Lemma: "mouse", Forms: []string{"mice"}}}},
		{Lemmas: []LemmaRecord{{Lemma: "run", Forms: []string{"ran", "running"}}}},
	}
	dict := BuildDictionary(docs, tokenizer.Lower{})
	for in, want := range map[string]string{"Mice": "mouse", "running": "run", "walk": "walk"} {
		if got := dict.Lemma(in); got != want {
			t.Errorf("Lemma(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPageStoreTitle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "article_1.txt", "<html><head><title>  Kotlin 2.0 </title></head><body>x</body></html>")
	writeFile(t, dir, "article_2.txt", "<html><body>no title</body></html>")
	store := NewPageStore(dir, "Untitled")
	ctx := context.Background()

	if got, err := store.Title(ctx, "article_1.txt"); err != nil || got != "Kotlin 2.0" {
		t.Errorf("Title = %q, %v", got, err)
	}
	if got, err := store.Title(ctx, "article_2.txt"); err != nil || got != "Untitled" {
		t.Errorf("Title without element = %q, %v", got, err)
	}
	if _, err := store.Title(ctx, "article_3.txt"); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("missing page error = %v", err)
	}
	if _, err := store.Open("../article_1.txt"); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("path traversal error = %v", err)
	}
}
