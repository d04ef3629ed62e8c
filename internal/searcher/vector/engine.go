package vector

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/ranker"
)

// TitleResolver renders the human readable title of a stored document.
type TitleResolver interface {
	Title(ctx context.Context, name string) (string, error)
}

type SearchResult struct {
	Query          string             `json:"query"`
	TotalHits      int                `json:"total_hits"`
	Results        []ranker.ScoredDoc `json:"results"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
	CacheHit       bool               `json:"cache_hit"`
}

// Engine ranks documents of a Store against free-text queries.
type Engine struct {
	store    *Store
	lem      tokenizer.Lemmatizer
	titles   TitleResolver
	untitled string
	logger   *slog.Logger
}

// NewEngine wires a loaded store. titles may be nil, in which case every
// result carries the untitled placeholder.
func NewEngine(store *Store, lem tokenizer.Lemmatizer, titles TitleResolver, untitled string) *Engine {
	if lem == nil {
		lem = tokenizer.Lower{}
	}
	return &Engine{
		store:    store,
		lem:      lem,
		titles:   titles,
		untitled: untitled,
		logger:   slog.Default().With("component", "vector-engine"),
	}
}

func (e *Engine) Store() *Store {
	return e.store
}

// Search returns the k most similar documents to query along with the number
// of documents that scored above zero. A non-positive k uses the merger
// default.
func (e *Engine) Search(ctx context.Context, query string, k int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	qv := e.store.Vectorize(query, e.lem)
	if len(qv) == 0 {
		return &SearchResult{
			Query:          query,
			Results:        []ranker.ScoredDoc{},
			ElapsedSeconds: time.Since(start).Seconds(),
		}, nil
	}
	scored := ranker.Score(qv, e.store.Candidates(qv))
	top := merger.Top(scored, k)
	elapsed := time.Since(start).Seconds()

	for i := range top {
		top[i].Title = e.title(ctx, top[i].Name)
	}
	e.logger.Debug("vector query executed",
		"query", query,
		"terms", len(qv),
		"candidates", len(scored),
		"results", len(top),
	)
	return &SearchResult{
		Query:          query,
		TotalHits:      len(scored),
		Results:        top,
		ElapsedSeconds: elapsed,
	}, nil
}

func (e *Engine) title(ctx context.Context, name string) string {
	if e.titles == nil {
		return e.untitled
	}
	t, err := e.titles.Title(ctx, name)
	if err != nil {
		e.logger.Warn("title lookup failed", "doc", name, "error", err)
		return e.untitled
	}
	return t
}
