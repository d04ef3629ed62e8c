package tokenizer

import (
	"strings"
	"testing"
)

func BenchmarkWords(b *testing.B) {
	text := strings.Repeat("Kotlin 2.0 привносит новый компилятор K2, and Gradle builds get faster. ", 200)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Words(text)
	}
}

func BenchmarkSnowballLemma(b *testing.B) {
	words := []string{"running", "компиляторы", "builds", "корутинами", "faster"}
	var s Snowball
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Lemma(words[i%len(words)])
	}
}
