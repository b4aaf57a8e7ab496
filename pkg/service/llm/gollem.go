package llm

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

// GollemClient serves completions and embeddings through a gollem LLM
// client
type GollemClient struct {
	client    gollem.LLMClient
	dimension int
}

// GollemOption configures GollemClient
type GollemOption func(*GollemClient)

// WithGollemDimension overrides the embedding dimension
func WithGollemDimension(dim int) GollemOption {
	return func(c *GollemClient) {
		c.dimension = dim
	}
}

// NewGollem wraps a gollem LLM client
func NewGollem(client gollem.LLMClient, opts ...GollemOption) (*GollemClient, error) {
	if client == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &GollemClient{
		client:    client,
		dimension: model.EmbeddingDimension,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete runs a one-shot session and returns the concatenated text
func (c *GollemClient) Complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	var opts []gollem.SessionOption
	if req.SystemPrompt != "" {
		opts = append(opts, gollem.WithSessionSystemPrompt(req.SystemPrompt))
	}
	if req.JSON {
		opts = append(opts, gollem.WithSessionContentType(gollem.ContentTypeJSON))
	}

	session, err := c.client.NewSession(ctx, opts...)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	var genOpts []gollem.GenerateOption
	if req.Temperature > 0 {
		genOpts = append(genOpts, gollem.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		genOpts = append(genOpts, gollem.WithMaxTokens(req.MaxTokens))
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(req.UserPrompt)}, genOpts...)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.Wrap(ErrEmptyResponse, "gollem session returned no text")
	}

	return strings.Join(resp.Texts, ""), nil
}

// Embed generates an embedding vector for text
func (c *GollemClient) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.client.GenerateEmbedding(ctx, c.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.Wrap(ErrEmptyEmbedding, "gollem returned no embedding")
	}

	return toFloat32(embeddings[0]), nil
}

// Dimension returns the requested embedding size
func (c *GollemClient) Dimension() int {
	return c.dimension
}
