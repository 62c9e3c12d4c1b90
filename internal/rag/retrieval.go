package rag

import (
	"sort"
	"strings"
)

// DefaultTopN is the number of chunks joined into a context by default.
const DefaultTopN = 3

// ContextSeparator joins selected chunks into one context string.
const ContextSeparator = "\n\n"

// ScoredChunk is a stored chunk with its similarity to the query.
type ScoredChunk struct {
	Index int
	Text  string
	Score float64
}

// Rank scores every stored chunk against query and returns the topN best,
// ordered by ascending similarity (the most similar chunk comes last).
// Equal scores keep their original chunk order. topN <= 0 selects nothing;
// topN larger than the number of chunks selects all of them.
// embeddings and chunks are parallel; extra entries on either side are ignored.
func Rank(query []float32, embeddings [][]float32, chunks []string, topN int) []ScoredChunk {
	n := min(len(embeddings), len(chunks))
	if topN <= 0 || n == 0 {
		return nil
	}

	scored := make([]ScoredChunk, n)
	for i := 0; i < n; i++ {
		scored[i] = ScoredChunk{
			Index: i,
			Text:  chunks[i],
			Score: CosineSimilarity(query, embeddings[i]),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })

	if topN < n {
		scored = scored[n-topN:]
	}
	return scored
}

// Retrieve joins the texts selected by Rank into a single context.
// It returns "" when nothing is selected.
func Retrieve(query []float32, embeddings [][]float32, chunks []string, topN int) string {
	ranked := Rank(query, embeddings, chunks, topN)
	if len(ranked) == 0 {
		return ""
	}

	texts := make([]string, len(ranked))
	for i, r := range ranked {
		texts[i] = r.Text
	}
	return strings.Join(texts, ContextSeparator)
}
