package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	apperrors "github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/errors"
)

// PageStore serves the raw HTML pages the corpus was extracted from.
type PageStore struct {
	dir      string
	untitled string
}

// NewPageStore returns a store over dir. untitled is reported as the title of
// pages without a usable <title> element.
func NewPageStore(dir, untitled string) *PageStore {
	return &PageStore{dir: dir, untitled: untitled}
}

// Open returns the page stored under name. Names that are not plain file
// names are reported as not found.
func (p *PageStore) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("page %q: %w", name, apperrors.ErrDocumentNotFound)
	}
	f, err := os.Open(filepath.Join(p.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("page %q: %w", name, apperrors.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("opening page %q: %w", name, err)
	}
	return f, nil
}

// Title returns the trimmed text of the page's <title> element, or the
// untitled placeholder when the page has none.
func (p *PageStore) Title(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := p.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	title, ok, err := ExtractTitle(f)
	if err != nil {
		return "", fmt.Errorf("parsing page %q: %w", name, err)
	}
	if !ok {
		return p.untitled, nil
	}
	return title, nil
}

// ExtractTitle scans an HTML document for its first <title> element.
func ExtractTitle(r io.Reader) (string, bool, error) {
	z := html.NewTokenizer(r)
	inTitle := false
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", false, err
			}
			title := strings.TrimSpace(sb.String())
			return title, title != "", nil
		case html.StartTagToken:
			tn, _ := z.TagName()
			if atom.Lookup(tn) == atom.Title {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				sb.Write(z.Text())
			}
		case html.EndTagToken:
			tn, _ := z.TagName()
			if inTitle && atom.Lookup(tn) == atom.Title {
				title := strings.TrimSpace(sb.String())
				return title, title != "", nil
			}
		}
	}
}
