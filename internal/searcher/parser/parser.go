// Package parser turns boolean query strings into postfix form.
package parser

import (
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
)

type Kind int

const (
	KindOperand Kind = iota
	KindAnd
	KindOr
	KindNot
	KindLParen
	KindRParen
)

// Token is one lexical unit of a boolean query. Text holds the lemmatized
// term for operands and the upper-cased keyword for operators.
type Token struct {
	Kind Kind
	Text string
}

var queryToken = regexp.MustCompile(`[()]|\p{L}+`)

// Tokenize scans query for parentheses and letter runs. Runs spelling AND,
// OR or NOT in any case become operators; every other run is lemmatized.
// Remaining characters are dropped.
func Tokenize(query string, lem tokenizer.Lemmatizer) []Token {
	if lem == nil {
		lem = tokenizer.Lower{}
	}
	matches := queryToken.FindAllString(query, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		switch m {
		case "(":
			tokens = append(tokens, Token{Kind: KindLParen, Text: m})
			continue
		case ")":
			tokens = append(tokens, Token{Kind: KindRParen, Text: m})
			continue
		}
		switch upper := strings.ToUpper(m); upper {
		case "AND":
			tokens = append(tokens, Token{Kind: KindAnd, Text: upper})
		case "OR":
			tokens = append(tokens, Token{Kind: KindOr, Text: upper})
		case "NOT":
			tokens = append(tokens, Token{Kind: KindNot, Text: upper})
		default:
			if term := lem.Lemma(m); term != "" {
				tokens = append(tokens, Token{Kind: KindOperand, Text: term})
			}
		}
	}
	return tokens
}
