// Package tfidf computes per-document TF-IDF weights over tokens or lemmas
// and persists them as one vector file per document.
package tfidf

import (
	"log/slog"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/corpus"
)

// Weight is one row of a vector file.
type Weight struct {
	Term  string
	IDF   float64
	TFIDF float64
}

// DocumentWeights is the weight vector of one document, ordered by term.
type DocumentWeights struct {
	ID      uint32
	Name    string
	Weights []Weight
}

// IDF returns ln(totalDocs / docFreq), or 0 when the term occurs nowhere.
func IDF(totalDocs, docFreq int) float64 {
	if docFreq <= 0 || totalDocs <= 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// ComputeTokens weighs every distinct token of every document:
// tf = count / tokens in document, idf over the documents containing it.
func ComputeTokens(docs []corpus.Document) []DocumentWeights {
	logger := slog.Default().With("component", "tfidf", "pass", "tokens")

	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		counts[i] = doc.TokenCounts()
		for token := range counts[i] {
			df[token]++
		}
	}

	out := make([]DocumentWeights, 0, len(docs))
	for i, doc := range docs {
		dw := DocumentWeights{ID: doc.ID, Name: doc.Name}
		total := len(doc.Tokens)
		if total == 0 {
			logger.Info("document has no tokens", "doc", doc.Name)
			out = append(out, dw)
			continue
		}
		for token, freq := range counts[i] {
			idf := IDF(len(docs), df[token])
			tf := float64(freq) / float64(total)
			dw.Weights = append(dw.Weights, Weight{Term: token, IDF: idf, TFIDF: tf * idf})
		}
		sortWeights(dw.Weights)
		out = append(out, dw)
	}
	logger.Info("token weights computed", "documents", len(docs), "terms", len(df))
	return out
}

// ComputeLemmas weighs the lemmas of every document. A lemma's frequency is
// the summed count of its surface forms in the document's tokens; a lemma
// counts towards document frequency only where one of its forms occurs.
func ComputeLemmas(docs []corpus.Document) []DocumentWeights {
	logger := slog.Default().With("component", "tfidf", "pass", "lemmas")

	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		counts[i] = doc.TokenCounts()
		for _, rec := range doc.Lemmas {
			if lemmaFrequency(rec.Forms, counts[i]) > 0 {
				df[rec.Lemma]++
			}
		}
	}

	out := make([]DocumentWeights, 0, len(docs))
	for i, doc := range docs {
		dw := DocumentWeights{ID: doc.ID, Name: doc.Name}
		total := len(doc.Tokens)
		if total == 0 {
			logger.Info("document has no tokens", "doc", doc.Name)
			out = append(out, dw)
			continue
		}
		for _, rec := range doc.Lemmas {
			freq := lemmaFrequency(rec.Forms, counts[i])
			if freq == 0 {
				continue
			}
			idf := IDF(len(docs), df[rec.Lemma])
			tf := float64(freq) / float64(total)
			dw.Weights = append(dw.Weights, Weight{Term: rec.Lemma, IDF: idf, TFIDF: tf * idf})
		}
		sortWeights(dw.Weights)
		out = append(out, dw)
	}
	logger.Info("lemma weights computed", "documents", len(docs), "terms", len(df))
	return out
}

func lemmaFrequency(forms []string, counts map[string]int) int {
	freq := 0
	for _, f := range forms {
		freq += counts[f]
	}
	return freq
}

func sortWeights(ws []Weight) {
	sort.Slice(ws, func(i, j int) bool {
		return ws[i].Term < ws[j].Term
	})
}
