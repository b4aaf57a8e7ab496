package usecase

import (
	"math"
	"strings"

	"github.com/samber/lo"
)

// cosineSimilarity returns false when the vectors cannot be compared
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, true
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

func wordSet(texts ...string) []string {
	var words []string
	for _, t := range texts {
		words = append(words, strings.Fields(strings.ToLower(t))...)
	}
	return lo.Uniq(words)
}

// jaccard is |a∩b| / |a∪b| over word sets; 0 when either is empty
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := len(lo.Intersect(a, b))
	union := len(lo.Union(a, b))
	return float64(inter) / float64(union)
}
