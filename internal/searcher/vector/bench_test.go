package vector

import (
	"context"
	"fmt"
	"math"
	"testing"
)

func benchStore(b *testing.B, docs int) *Store {
	b.Helper()
	vocab := []string{"kotlin", "java", "android", "gradle", "compiler", "release", "coroutine", "jvm", "ktor", "spring"}
	vectors := make(map[string][]Row, docs)
	for d := 0; d < docs; d++ {
		var rows []Row
		for i, term := range vocab {
			if d%(i+1) == 0 {
				idf := math.Log(float64(i + 2))
				rows = append(rows, Row{Term: term, IDF: idf, TFIDF: idf / float64(i+1)})
			}
		}
		vectors[fmt.Sprintf("article_%d.txt", d)] = rows
	}
	s, err := NewStore(vectors)
	if err != nil {
		b.Fatal(err)
	}
	return s
}

func BenchmarkSearch(b *testing.B) {
	eng := NewEngine(benchStore(b, 20000), nil, nil, "Untitled")
	ctx := context.Background()
	for _, q := range []string{"ktor", "kotlin coroutine", "java spring gradle compiler"} {
		b.Run(q, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := eng.Search(ctx, q, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
