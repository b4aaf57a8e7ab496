package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

// DefaultAnthropicModel is used when no model is configured
const DefaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicCompleter serves completions through the Anthropic Messages API.
// Anthropic has no embedding endpoint, so pair it with another Embedder.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic creates a completer. Request options are passed to the SDK
// client as is (API key, base URL, retries).
func NewAnthropic(modelName string, opts ...option.RequestOption) *AnthropicCompleter {
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicCompleter{
		client: &client,
		model:  modelName,
	}
}

// Complete sends a single user message and returns the text blocks of the reply
func (c *AnthropicCompleter) Complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	userPrompt := req.UserPrompt
	if req.JSON {
		userPrompt += "\n\nRespond with a single JSON object and nothing else."
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", goerr.Wrap(err, "failed to call Anthropic API", goerr.V("model", c.model))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", goerr.Wrap(ErrEmptyResponse, "Anthropic returned no text block", goerr.V("model", c.model))
	}

	return sb.String(), nil
}
