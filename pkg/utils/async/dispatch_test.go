package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/utils/async"
)

func TestDispatch(t *testing.T) {
	t.Run("handler runs after the caller's context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		async.Dispatch(ctx, func(ctx context.Context) error {
			done <- ctx.Err()
			return nil
		})
		cancel()

		select {
		case err := <-done:
			gt.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	})

	t.Run("panic and error do not escape", func(t *testing.T) {
		finished := make(chan struct{}, 2)
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			defer func() { finished <- struct{}{} }()
			panic("boom")
		})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			defer func() { finished <- struct{}{} }()
			return errors.New("failed")
		})

		for range 2 {
			select {
			case <-finished:
			case <-time.After(time.Second):
				t.Fatal("handler did not finish")
			}
		}
	})
}
