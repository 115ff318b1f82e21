package chunk

import (
	"sort"
	"strings"
)

// tokenizeQuery splits query on whitespace, lowercases, and keeps tokens
// longer than 2 chars, per §4.E's query-ranking contract.
func tokenizeQuery(query string) []string {
	var out []string
	for _, t := range strings.Fields(query) {
		t = strings.ToLower(t)
		if len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

// FindRelevant ranks chunks by relevance = score + 2*Σ(token occurrences
// in chunk.Text, case-insensitive), sorts descending, and returns the
// first n with Relevance populated.
func FindRelevant(chunks []Chunk, query string, n int) []Chunk {
	tokens := tokenizeQuery(query)

	type scored struct {
		chunk     Chunk
		relevance int
	}

	results := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		lower := strings.ToLower(c.Text)
		occurrences := 0
		for _, t := range tokens {
			occurrences += strings.Count(lower, t)
		}
		rel := c.Score + 2*occurrences
		cc := c
		cc.Relevance = &rel
		results = append(results, scored{chunk: cc, relevance: rel})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].relevance > results[j].relevance
	})

	if n <= 0 || n > len(results) {
		n = len(results)
	}
	out := make([]Chunk, n)
	for i := 0; i < n; i++ {
		out[i] = results[i].chunk
	}
	return out
}
