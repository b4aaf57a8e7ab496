package llm

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

const (
	DefaultOpenAIModel          = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
)

// OpenAIClient serves completions and embeddings through an OpenAI
// compatible endpoint
type OpenAIClient struct {
	client         openai.Client
	model          string
	embeddingModel string
	dimension      int
}

// OpenAIOption configures OpenAIClient
type OpenAIOption func(*OpenAIClient)

// WithOpenAIModel sets the chat completion model
func WithOpenAIModel(name string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.model = name
	}
}

// WithOpenAIEmbeddingModel sets the embedding model
func WithOpenAIEmbeddingModel(name string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.embeddingModel = name
	}
}

// WithOpenAIDimension sets the requested embedding size
func WithOpenAIDimension(dim int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.dimension = dim
	}
}

// NewOpenAI creates a client from SDK request options and client options
func NewOpenAI(reqOpts []option.RequestOption, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		client:         openai.NewClient(reqOpts...),
		model:          DefaultOpenAIModel,
		embeddingModel: DefaultOpenAIEmbeddingModel,
		dimension:      model.EmbeddingDimension,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs a chat completion with a system and a user message
func (c *OpenAIClient) Complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", goerr.Wrap(err, "failed to call OpenAI chat completion", goerr.V("model", c.model))
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", goerr.Wrap(ErrEmptyResponse, "OpenAI returned no completion choices", goerr.V("model", c.model))
	}

	return completion.Choices[0].Message.Content, nil
}

// Embed generates an embedding vector for text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Dimensions: openai.Int(int64(c.dimension)),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call OpenAI embeddings", goerr.V("model", c.embeddingModel))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, goerr.Wrap(ErrEmptyEmbedding, "OpenAI returned no embedding", goerr.V("model", c.embeddingModel))
	}

	return toFloat32(resp.Data[0].Embedding), nil
}

// Dimension returns the requested embedding size
func (c *OpenAIClient) Dimension() int {
	return c.dimension
}
