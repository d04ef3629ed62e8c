package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
)

func TestTokenize(t *testing.T) {
	dict := tokenizer.NewDictionary(tokenizer.Lower{})
	dict.Add("cat", "cats")

	got := Tokenize("(Cats and android) oR not 42 dog!", dict)
	want := []Token{
		{Kind: KindLParen, Text: "("},
		{Kind: KindOperand, Text: "cat"},
		{Kind: KindAnd, Text: "AND"},
		{Kind: KindOperand, Text: "android"},
		{Kind: KindRParen, Text: ")"},
		{Kind: KindOr, Text: "OR"},
		{Kind: KindNot, Text: "NOT"},
		{Kind: KindOperand, Text: "dog"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeCyrillic(t *testing.T) {
	got := Tokenize("Котлин AND java", nil)
	want := []Token{
		{Kind: KindOperand, Text: "котлин"},
		{Kind: KindAnd, Text: "AND"},
		{Kind: KindOperand, Text: "java"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}

func TestToPostfix(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"a", "a"},
		{"a AND b", "a b AND"},
		{"a OR b AND c", "a b c AND OR"},
		{"a AND b OR c", "a b AND c OR"},
		{"a OR b OR c", "a b OR c OR"},
		{"(a OR b) AND c", "a b OR c AND"},
		{"NOT a AND b", "a NOT b AND"},
		{"a AND NOT b", "a b NOT AND"},
		{"NOT NOT a", "a NOT NOT"},
		{"NOT (a OR b)", "a b OR NOT"},
		{"a ) AND b", "a b AND"},
		{"a OR b ) AND c", "a b OR c AND"},
		{"((a AND b", "a b AND"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Format(ToPostfix(Tokenize(tt.query, nil)))
			if got != tt.want {
				t.Errorf("postfix(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
