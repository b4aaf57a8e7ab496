// Package llm adapts model providers to the Completer and Embedder
// interfaces used by the use cases.
package llm

import (
	"errors"

	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
)

var (
	// ErrEmptyResponse is returned when a provider answers without any text
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrEmptyEmbedding is returned when a provider answers without a vector
	ErrEmptyEmbedding = errors.New("no embedding returned")
)

var (
	_ interfaces.Completer = &GollemClient{}
	_ interfaces.Embedder  = &GollemClient{}
	_ interfaces.Completer = &AnthropicCompleter{}
	_ interfaces.Completer = &OpenAIClient{}
	_ interfaces.Embedder  = &OpenAIClient{}
	_ interfaces.Embedder  = &HashEmbedder{}
	_ interfaces.Embedder  = &CachedEmbedder{}
)

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
