// Package indexer runs the offline build: it reads the corpus once and
// writes the inverted index snapshot and both TF-IDF vector sets.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/tracing"
)

// Artifact names used in index events.
const (
	ArtifactIndex      = "index"
	ArtifactTokenTFIDF = "tfidf_tokens"
	ArtifactLemmaTFIDF = "tfidf_lemmas"
)

// EventSink receives one event per document and artifact.
// *collector.BatchCollector satisfies it.
type EventSink interface {
	Track(key string, value any)
}

// Report summarises a finished build.
type Report struct {
	BuildID    string
	Documents  int
	Indexed    int
	Terms      int
	Postings   uint64
	TokenFiles int
	LemmaFiles int
	Elapsed    time.Duration
	Phases     map[string]time.Duration
}

// Engine runs the build pipeline described by the corpus and index config
// sections.
type Engine struct {
	corpus config.CorpusConfig
	index  config.IndexConfig
	events EventSink
	logger *slog.Logger
}

// NewEngine returns a build engine. events may be nil.
func NewEngine(corpusCfg config.CorpusConfig, indexCfg config.IndexConfig, events EventSink) *Engine {
	return &Engine{
		corpus: corpusCfg,
		index:  indexCfg,
		events: events,
		logger: slog.Default().With("component", "indexer"),
	}
}

// Build reads every document and writes all artifacts. Any failure aborts
// the build; artifacts already written are left in place.
func (e *Engine) Build(ctx context.Context) (*Report, error) {
	ctx, root := tracing.Start(ctx, "index-build")
	report := &Report{BuildID: root.TraceID}
	e.logger.Info("build started",
		"build_id", report.BuildID,
		"tokens_dir", e.corpus.TokensDir,
		"lemmas_dir", e.corpus.LemmasDir,
	)

	_, span := tracing.StartChild(ctx, "read-corpus")
	dir := corpus.NewDir(e.corpus.TokensDir, e.corpus.LemmasDir)
	docs, err := dir.Documents(ctx)
	if err != nil {
		span.End()
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	// The inverted index covers every lemma file, including ones whose token
	// file is missing; the vector passes only see documents with tokens.
	lemmaDocs, err := dir.LemmaDocuments(ctx)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("reading lemma files: %w", err)
	}
	report.Documents, report.Indexed = len(docs), len(lemmaDocs)
	span.SetAttr("documents", len(docs))
	if missing := lemmaOnly(docs, lemmaDocs); len(missing) > 0 {
		e.logger.Warn("lemma files without token file are indexed but get no vectors",
			"count", len(missing),
			"files", missing,
		)
	}

	_, span = tracing.StartChild(ctx, "inverted-index")
	idx := index.Build(lemmaDocs)
	err = snapshot.WriteFile(e.index.SnapshotPath, idx)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("writing index snapshot: %w", err)
	}
	stats := idx.Stats()
	report.Terms, report.Postings = stats.Terms, stats.Postings
	span.SetAttr("terms", stats.Terms)
	e.logger.Info("inverted index written",
		"path", e.index.SnapshotPath,
		"terms", stats.Terms,
		"documents", stats.Documents,
		"postings", stats.Postings,
	)
	for _, doc := range lemmaDocs {
		e.track(ArtifactIndex, doc.ID, doc.Name, len(doc.Lemmas))
	}

	passes := []struct {
		artifact string
		dir      string
		compute  func([]corpus.Document) []tfidf.DocumentWeights
		files    *int
	}{
		{ArtifactTokenTFIDF, e.index.TokenVectorsDir, tfidf.ComputeTokens, &report.TokenFiles},
		{ArtifactLemmaTFIDF, e.index.LemmaVectorsDir, tfidf.ComputeLemmas, &report.LemmaFiles},
	}
	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, span := tracing.StartChild(ctx, p.artifact)
		weights := p.compute(docs)
		err := tfidf.WriteDir(p.dir, weights)
		span.End()
		if err != nil {
			return nil, fmt.Errorf("writing %s vectors: %w", p.artifact, err)
		}
		*p.files = len(weights)
		span.SetAttr("files", len(weights))
		e.trackWeights(p.artifact, weights)
		e.logger.Info("vectors written", "artifact", p.artifact, "dir", p.dir, "files", len(weights))
	}

	root.End()
	report.Elapsed = root.Duration()
	report.Phases = root.Phases()
	root.Log(e.logger, slog.LevelDebug)
	e.logger.Info("build finished",
		"build_id", report.BuildID,
		"documents", report.Documents,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

// CompleteEvent is the notification published once a build succeeds.
func (r *Report) CompleteEvent() analytics.IndexCompleteEvent {
	return analytics.IndexCompleteEvent{
		Type:      analytics.EventIndexComplete,
		BuildID:   r.BuildID,
		Documents: r.Documents,
		Terms:     r.Terms,
		Timestamp: time.Now().UTC(),
	}
}

func lemmaOnly(docs, lemmaDocs []corpus.Document) []string {
	have := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		have[d.Name] = struct{}{}
	}
	var names []string
	for _, d := range lemmaDocs {
		if _, ok := have[d.Name]; !ok {
			names = append(names, d.Name)
		}
	}
	return names
}

func (e *Engine) trackWeights(artifact string, weights []tfidf.DocumentWeights) {
	for _, dw := range weights {
		e.track(artifact, dw.ID, dw.Name, len(dw.Weights))
	}
}

func (e *Engine) track(artifact string, id uint32, name string, terms int) {
	if e.events == nil {
		return
	}
	e.events.Track(name, analytics.IndexEvent{
		Type:      analytics.EventIndexDoc,
		DocID:     id,
		Name:      name,
		Artifact:  artifact,
		TermCount: terms,
		Timestamp: time.Now().UTC(),
	})
}
