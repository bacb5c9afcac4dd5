// Package bm25 implements an incrementally maintained Okapi BM25
// full-text index: inverted postings and a live-updated document-length
// table persisted through internal/storage, with tokenization built on
// bleve's analysis primitives. bleve's own index engine is never used
// here (it cannot produce the bm25_postings/bm25_docs/bm25_stats key
// layout), only its analysis.Tokenizer/TokenFilter pipeline.
package bm25

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// DefaultStopWords is the fixed stop-word list applied during ingestion
// and query tokenization.
var DefaultStopWords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "of",
	"to", "in", "on", "at", "by", "for", "with", "about", "against",
	"between", "into", "through", "during", "before", "after", "above",
	"below", "from", "up", "down", "is", "are", "was", "were", "be",
	"been", "being", "have", "has", "had", "having", "do", "does", "did",
	"this", "that", "these", "those", "it", "its", "as", "not", "no",
}

func buildStopMap(words []string) analysis.TokenMap {
	m := analysis.NewTokenMap()
	for _, w := range words {
		m.AddToken(w)
	}
	return m
}

// pipeline composes bleve's unicode tokenizer with a lowercase filter
// and the fixed stop-word filter, used directly as a standalone
// analysis chain rather than registered into a bleve index.
var pipeline = &analysis.DefaultAnalyzer{
	Tokenizer: unicode.NewUnicodeTokenizer(),
	TokenFilters: []analysis.TokenFilter{
		lowercase.NewLowerCaseFilter(),
		stop.NewStopTokensFilter(buildStopMap(DefaultStopWords)),
	},
}

// Tokenize normalizes text into a lowercased, punctuation-stripped,
// stop-word-filtered term sequence.
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	stream := pipeline.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		out = append(out, string(tok.Term))
	}
	return out
}

// TermFrequencies tokenizes text and returns a term -> occurrence-count
// map, the per-document input to postings maintenance.
func TermFrequencies(text string) map[string]int {
	terms := Tokenize(text)
	freq := make(map[string]int, len(terms))
	for _, t := range terms {
		freq[t]++
	}
	return freq
}
