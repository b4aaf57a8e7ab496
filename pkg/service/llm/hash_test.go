package llm_test

import (
	"context"
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/service/llm"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder(t *testing.T) {
	ctx := context.Background()
	e := llm.NewHashEmbedder(128)
	gt.Value(t, e.Dimension()).Equal(128)

	t.Run("same text gives the same unit vector", func(t *testing.T) {
		a, err := e.Embed(ctx, "Lancer mon projet")
		gt.NoError(t, err).Required()
		b, err := e.Embed(ctx, "lancer MON projet!")
		gt.NoError(t, err).Required()

		gt.Value(t, a).Equal(b)
		gt.Bool(t, math.Abs(cosine(a, a)-1) < 1e-6).True()
	})

	t.Run("shared words raise similarity", func(t *testing.T) {
		a, _ := e.Embed(ctx, "budget for the new business project")
		b, _ := e.Embed(ctx, "business project budget review")
		gt.Bool(t, cosine(a, b) > 0.3).True()
	})

	t.Run("text without words is a zero vector", func(t *testing.T) {
		v, err := e.Embed(ctx, " ... !!! ")
		gt.NoError(t, err).Required()
		gt.Value(t, len(v)).Equal(128)
		gt.Value(t, cosine(v, v)).Equal(0.0)
	})

	t.Run("non positive dimension falls back to default", func(t *testing.T) {
		gt.Value(t, llm.NewHashEmbedder(0).Dimension()).Equal(llm.DefaultHashDimension)
	})
}
