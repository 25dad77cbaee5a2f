// Package similarity scores stored vectors against a query vector and
// produces a deterministic top-k ranking.
package similarity

import (
	"math"
	"sort"

	"ragserver/internal/domain"
)

// Cosine returns the cosine similarity of a and b.
// Vectors of mismatched length and vectors with zero norm score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Rank scores every candidate against the query and returns the top k,
// ordered by score descending. Ties keep the candidates' original order,
// so identical inputs always produce identical rankings. A query with
// zero norm yields no results.
func Rank(query []float64, candidates []domain.ChunkRecord, k int) []domain.SearchResult {
	if k <= 0 || len(candidates) == 0 || Norm(query) == 0 {
		return nil
	}
	results := make([]domain.SearchResult, 0, len(candidates))
	for _, rec := range candidates {
		results = append(results, domain.SearchResult{Record: rec, Score: Cosine(query, rec.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}
