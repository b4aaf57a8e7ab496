package interfaces

import (
	"context"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

// Completer requests a single-turn text completion
type Completer interface {
	Complete(ctx context.Context, req model.CompletionRequest) (string, error)
}

// Embedder computes a fixed-length embedding vector for a text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Archiver writes expiring memory records somewhere durable before deletion
type Archiver interface {
	Archive(ctx context.Context, records []*model.MemoryRecord) error
}
