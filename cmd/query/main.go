// Command query is an interactive prompt over the built artifacts. It runs
// boolean queries (-mode boolean) or ranked free-text queries (-mode vector)
// read line by line from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/vector"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/resilience"
)

// answerFunc runs one query and prints its results to out.
type answerFunc func(ctx context.Context, query string, out io.Writer) error

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	mode := flag.String("mode", "vector", "query mode: boolean or vector")
	limit := flag.Int("limit", 0, "results per vector query (0 uses search.defaultLimit)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var art *searcher.Artifacts
	err = resilience.WithTimeout(ctx, cfg.Search.LoadTimeout, "load-artifacts", func(ctx context.Context) error {
		var err error
		art, err = searcher.Load(ctx, cfg, nil)
		return err
	})
	if err != nil {
		slog.Error("failed to load search artifacts", "error", err)
		os.Exit(1)
	}

	var answer answerFunc
	switch *mode {
	case "boolean":
		answer = booleanAnswer(executor.NewBoolean(art.Index, art.Lemmatizer))
	case "vector":
		k := *limit
		if k <= 0 {
			k = cfg.Search.DefaultLimit
		}
		pages := corpus.NewPageStore(cfg.Corpus.PagesDir, cfg.Search.UntitledTitle)
		answer = vectorAnswer(vector.NewEngine(art.Vectors, art.VectorLemmatizer, pages, cfg.Search.UntitledTitle), k)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want boolean or vector)\n", *mode)
		os.Exit(2)
	}

	if err := repl(ctx, os.Stdin, os.Stdout, answer); err != nil {
		slog.Error("query loop failed", "error", err)
		os.Exit(1)
	}
}

// repl prompts for queries until in is exhausted, ctx is done, or the user
// types "exit" or "quit". Query errors are printed and the loop continues.
func repl(ctx context.Context, in io.Reader, out io.Writer, answer answerFunc) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "search query > ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		query := strings.TrimSpace(sc.Text())
		switch query {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := answer(ctx, query, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func booleanAnswer(b *executor.Boolean) answerFunc {
	return func(ctx context.Context, query string, out io.Writer) error {
		res, err := b.Search(ctx, query)
		if err != nil {
			return err
		}
		if res.TotalHits == 0 {
			fmt.Fprintf(out, "\nnothing found (postfix: %s)\n\n", res.Postfix)
			return nil
		}
		ids := make([]string, len(res.DocIDs))
		for i, id := range res.DocIDs {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(out, "%s\n\nfound %d results\n\n", strings.Join(ids, " "), res.TotalHits)
		return nil
	}
}

func vectorAnswer(e *vector.Engine, k int) answerFunc {
	return func(ctx context.Context, query string, out io.Writer) error {
		res, err := e.Search(ctx, query, k)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\ntotal results: %d\n", res.TotalHits)
		if len(res.Results) == 0 {
			fmt.Fprint(out, "\nnothing found for your query\n\n")
			return nil
		}
		fmt.Fprintf(out, "\ntop %d results (%.3fs):\n\n", len(res.Results), res.ElapsedSeconds)
		for i, doc := range res.Results {
			fmt.Fprintf(out, "%d. %s\n   %d %s (cos_similarity: %.4f)\n\n", i+1, doc.Title, doc.DocID, doc.Name, doc.Score)
		}
		return nil
	}
}
