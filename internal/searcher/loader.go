// Package searcher loads the artifacts written by the indexer into the
// read-only serving state shared by the boolean and vector engines.
package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/vector"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/metrics"
)

// Artifacts is the serving state. Nothing in it changes after Load.
type Artifacts struct {
	Index   *index.InvertedIndex
	Vectors *vector.Store
	// Lemmatizer maps query words onto index lemmas.
	Lemmatizer tokenizer.Lemmatizer
	// VectorLemmatizer maps query words onto vector terms; it is the plain
	// lowercaser when the token vectors are served.
	VectorLemmatizer tokenizer.Lemmatizer
}

// Load reads the index snapshot, the configured vector set and, for the
// dictionary lemmatizer, the corpus lemma files in parallel. m may be nil.
func Load(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Artifacts, error) {
	logger := slog.Default().With("component", "artifact-loader")
	start := time.Now()
	art := &Artifacts{}
	source := cfg.Search.VectorSource

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		idx, err := snapshot.ReadFile(cfg.Index.SnapshotPath)
		observeLoad(m, "index", err)
		if err != nil {
			return fmt.Errorf("loading inverted index: %w", err)
		}
		art.Index = idx
		return nil
	})
	g.Go(func() error {
		store, err := vector.Load(gctx, cfg.Search.VectorsDir(cfg.Index), cfg.Search.LoadWorkers)
		observeLoad(m, "vectors_"+source, err)
		if err != nil {
			return fmt.Errorf("loading %s vectors: %w", source, err)
		}
		art.Vectors = store
		return nil
	})
	g.Go(func() error {
		lem, err := NewLemmatizer(gctx, cfg.Search, cfg.Corpus)
		if err != nil {
			return fmt.Errorf("building lemmatizer: %w", err)
		}
		art.Lemmatizer = lem
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	art.VectorLemmatizer = art.Lemmatizer
	if source == "tokens" {
		art.VectorLemmatizer = tokenizer.Lower{}
	}

	stats := art.Index.Stats()
	if m != nil {
		m.IndexTerms.Set(float64(stats.Terms))
		m.IndexDocuments.Set(float64(stats.Documents))
		m.VectorDocuments.WithLabelValues(source).Set(float64(art.Vectors.Len()))
		m.VectorTerms.WithLabelValues(source).Set(float64(art.Vectors.Terms()))
	}
	logger.Info("artifacts loaded",
		"index_terms", stats.Terms,
		"index_documents", stats.Documents,
		"vector_source", source,
		"vector_documents", art.Vectors.Len(),
		"vector_terms", art.Vectors.Terms(),
		"lemmatizer", cfg.Search.Lemmatizer,
		"elapsed", time.Since(start),
	)
	return art, nil
}

// NewLemmatizer builds the query lemmatizer named by search.lemmatizer.
func NewLemmatizer(ctx context.Context, search config.SearchConfig, corpusCfg config.CorpusConfig) (tokenizer.Lemmatizer, error) {
	switch search.Lemmatizer {
	case "lower":
		return tokenizer.Lower{}, nil
	case "snowball":
		return tokenizer.Snowball{Language: search.SnowballLanguage}, nil
	case "dictionary":
		docs, err := corpus.NewDir("", corpusCfg.LemmasDir).LemmaDocuments(ctx)
		if err != nil {
			return nil, err
		}
		return corpus.BuildDictionary(docs, tokenizer.Lower{}), nil
	default:
		return nil, fmt.Errorf("unknown lemmatizer %q", search.Lemmatizer)
	}
}

func observeLoad(m *metrics.Metrics, artifact string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ArtifactLoadsTotal.WithLabelValues(artifact, status).Inc()
}
