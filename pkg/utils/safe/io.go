package safe

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/secmon-lab/coachmem/pkg/utils/logging"
)

// Close closes c and logs the error. Nil closers are ignored.
func Close(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Fprintf writes formatted output and logs a failed write instead of
// returning it. Used for terminal output where a broken pipe is not fatal.
func Fprintf(ctx context.Context, w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		logging.From(ctx).Warn("Failed to write output", slog.Any("error", err))
	}
}
