package safe_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/utils/safe"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestClose(t *testing.T) {
	called := false
	safe.Close(t.Context(), closerFunc(func() error {
		called = true
		return errors.New("already closed")
	}))
	gt.Bool(t, called).True()

	safe.Close(t.Context(), nil)
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer
	safe.Fprintf(t.Context(), &buf, "%s=%d\n", "count", 3)
	gt.S(t, buf.String()).Equal("count=3\n")

	safe.Fprintf(t.Context(), brokenWriter{}, "ignored")
	safe.Fprintf(t.Context(), nil, "ignored")
}
