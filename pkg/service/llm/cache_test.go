package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/service/llm"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (e *countingEmbedder) Dimension() int {
	return 2
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("second call for the same text hits the cache", func(t *testing.T) {
		base := &countingEmbedder{}
		e, err := llm.NewCachedEmbedder(base, 1<<20)
		gt.NoError(t, err).Required()
		defer e.Close()

		v1, err := e.Embed(ctx, "hello")
		gt.NoError(t, err).Required()
		v2, err := e.Embed(ctx, "hello")
		gt.NoError(t, err).Required()

		gt.Value(t, v1).Equal(v2)
		gt.Value(t, base.calls).Equal(1)

		_, err = e.Embed(ctx, "world")
		gt.NoError(t, err).Required()
		gt.Value(t, base.calls).Equal(2)
		gt.Value(t, e.Dimension()).Equal(2)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		base := &countingEmbedder{err: errors.New("unavailable")}
		e, err := llm.NewCachedEmbedder(base, 0)
		gt.NoError(t, err).Required()
		defer e.Close()

		_, err = e.Embed(ctx, "hello")
		gt.Value(t, err).NotNil()
		_, err = e.Embed(ctx, "hello")
		gt.Value(t, err).NotNil()
		gt.Value(t, base.calls).Equal(2)
	})

	t.Run("requires a base embedder", func(t *testing.T) {
		_, err := llm.NewCachedEmbedder(nil, 0)
		gt.Value(t, err).NotNil()
	})
}
