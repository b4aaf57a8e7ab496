package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/repository/memory"
	"github.com/secmon-lab/coachmem/pkg/usecase"
)

// testNow is a Wednesday
var testNow = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

func testConfig() usecase.Config {
	cfg := usecase.DefaultConfig()
	cfg.Clock = fixedClock
	return cfg
}

type mockCompleter struct {
	mu       sync.Mutex
	requests []model.CompletionRequest
	fn       func(req model.CompletionRequest) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.fn(req)
}

func (m *mockCompleter) Requests() []model.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CompletionRequest{}, m.requests...)
}

func respond(text string) *mockCompleter {
	return &mockCompleter{fn: func(model.CompletionRequest) (string, error) {
		return text, nil
	}}
}

var errBackend = errors.New("backend unavailable")

func failingCompleter() *mockCompleter {
	return &mockCompleter{fn: func(model.CompletionRequest) (string, error) {
		return "", errBackend
	}}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errBackend
}

func (failingEmbedder) Dimension() int {
	return 8
}

type recordingArchiver struct {
	archived []*model.MemoryRecord
	err      error
}

func (a *recordingArchiver) Archive(ctx context.Context, records []*model.MemoryRecord) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, records...)
	return nil
}

func newUseCases(repo *memory.Memory, opts ...usecase.Option) *usecase.UseCases {
	base := []usecase.Option{usecase.WithConfig(testConfig()), usecase.WithSyncHooks()}
	return usecase.New(repo, append(base, opts...)...)
}

// vectorEmbedder returns fixed vectors per text and the first axis for
// anything else
type vectorEmbedder map[string][]float32

func (e vectorEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func (e vectorEmbedder) Dimension() int {
	return 2
}
