package config

import (
	"context"
	"log/slog"

	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	openaiOption "github.com/openai/openai-go/v3/option"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/service/llm"
	"github.com/urfave/cli/v3"
)

const (
	ProviderNone      = "none"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	EmbedderHash      = "hash"
)

// Model holds CLI flags selecting the completion and embedding providers
type Model struct {
	gemini Gemini

	provider        string
	embedder        string
	anthropicAPIKey string
	anthropicModel  string
	openaiAPIKey    string
	openaiBaseURL   string
	openaiModel     string
	embeddingModel  string
	cacheBytes      int
}

// Models is the result of Model.Configure. Completer is nil when the
// provider is "none".
type Models struct {
	Completer interfaces.Completer
	Embedder  interfaces.Embedder
	closers   []func()
}

// Close releases provider resources such as the embedding cache
func (m *Models) Close() {
	for _, c := range m.closers {
		c()
	}
}

func (m *Model) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "model-provider",
			Usage:       "Completion provider (gemini, anthropic, openai or none)",
			Value:       ProviderNone,
			Category:    "Model",
			Sources:     cli.EnvVars("COACHMEM_MODEL_PROVIDER"),
			Destination: &m.provider,
		},
		&cli.StringFlag{
			Name:        "embedding-provider",
			Usage:       "Embedding provider (gemini, openai or hash)",
			Value:       EmbedderHash,
			Category:    "Model",
			Sources:     cli.EnvVars("COACHMEM_EMBEDDING_PROVIDER"),
			Destination: &m.embedder,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Category:    "Model",
			Sources:     cli.EnvVars("COACHMEM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"),
			Destination: &m.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "anthropic-model",
			Usage:       "Anthropic model name",
			Value:       llm.DefaultAnthropicModel,
			Category:    "Model",
			Sources:     cli.EnvVars("COACHMEM_ANTHROPIC_MODEL"),
			Destination: &m.anthropicModel,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Category:    "Model",
			Sources:     cli.EnvVars("COACHMEM_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &m.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Base URL of an OpenAI compatible endpoint",
			Category:    "Model",
			Sources:     cli.EnvVars("COACHMEM_OPENAI_BASE_URL"),
			Destination: &m.openaiBaseURL,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "OpenAI chat model name",
			Value:       llm.DefaultOpenAIModel,
			Category:    "Model",
			Sources:     cli.EnvVars("COACHMEM_OPENAI_MODEL"),
			Destination: &m.openaiModel,
		},
		&cli.StringFlag{
			Name:        "openai-embedding-model",
			Usage:       "OpenAI embedding model name",
			Value:       llm.DefaultOpenAIEmbeddingModel,
			Category:    "Model",
			Sources:     cli.EnvVars("COACHMEM_OPENAI_EMBEDDING_MODEL"),
			Destination: &m.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-cache-bytes",
			Usage:       "Size of the in-process embedding cache, 0 disables it",
			Value:       32 << 20,
			Category:    "Model",
			Sources:     cli.EnvVars("COACHMEM_EMBEDDING_CACHE_BYTES"),
			Destination: &m.cacheBytes,
		},
	}
	return append(flags, m.gemini.Flags()...)
}

func (m Model) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("provider", m.provider),
		slog.String("embedder", m.embedder),
		slog.String("anthropic_model", m.anthropicModel),
		slog.String("openai_model", m.openaiModel),
		slog.String("embedding_model", m.embeddingModel),
		slog.Int("cache_bytes", m.cacheBytes),
		slog.Bool("anthropic_api_key_set", m.anthropicAPIKey != ""),
		slog.Bool("openai_api_key_set", m.openaiAPIKey != ""),
	}
	attrs = append(attrs, m.gemini.LogAttrs()...)
	return slog.GroupValue(attrs...)
}

func (m *Model) openAI() (*llm.OpenAIClient, error) {
	if m.openaiAPIKey == "" {
		return nil, goerr.Wrap(ErrMissingCredentials, "openai-api-key is required", goerr.V(FieldKey, "openai-api-key"))
	}
	reqOpts := []openaiOption.RequestOption{openaiOption.WithAPIKey(m.openaiAPIKey)}
	if m.openaiBaseURL != "" {
		reqOpts = append(reqOpts, openaiOption.WithBaseURL(m.openaiBaseURL))
	}
	return llm.NewOpenAI(reqOpts,
		llm.WithOpenAIModel(m.openaiModel),
		llm.WithOpenAIEmbeddingModel(m.embeddingModel),
	), nil
}

func (m *Model) gollem(ctx context.Context) (*llm.GollemClient, error) {
	client, err := m.gemini.Configure(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, goerr.Wrap(ErrMissingCredentials, "gemini-project is required", goerr.V(FieldKey, "gemini-project"))
	}
	return llm.NewGollem(client)
}

// Configure builds the completer and embedder. The embedder is wrapped in
// an in-process cache unless the cache size is zero.
func (m *Model) Configure(ctx context.Context) (*Models, error) {
	models := &Models{}

	switch m.provider {
	case ProviderNone, "":
	case ProviderGemini:
		c, err := m.gollem(ctx)
		if err != nil {
			return nil, err
		}
		models.Completer = c
	case ProviderAnthropic:
		if m.anthropicAPIKey == "" {
			return nil, goerr.Wrap(ErrMissingCredentials, "anthropic-api-key is required", goerr.V(FieldKey, "anthropic-api-key"))
		}
		models.Completer = llm.NewAnthropic(m.anthropicModel, anthropicOption.WithAPIKey(m.anthropicAPIKey))
	case ProviderOpenAI:
		c, err := m.openAI()
		if err != nil {
			return nil, err
		}
		models.Completer = c
	default:
		return nil, goerr.Wrap(ErrUnknownProvider, "invalid model provider", goerr.V(ValueKey, m.provider))
	}

	var embedder interfaces.Embedder
	switch m.embedder {
	case EmbedderHash, "":
		embedder = llm.NewHashEmbedder(llm.DefaultHashDimension)
	case ProviderGemini:
		e, err := m.gollem(ctx)
		if err != nil {
			return nil, err
		}
		embedder = e
	case ProviderOpenAI:
		e, err := m.openAI()
		if err != nil {
			return nil, err
		}
		embedder = e
	default:
		return nil, goerr.Wrap(ErrUnknownProvider, "invalid embedding provider", goerr.V(ValueKey, m.embedder))
	}

	if m.cacheBytes > 0 {
		cached, err := llm.NewCachedEmbedder(embedder, int64(m.cacheBytes))
		if err != nil {
			return nil, err
		}
		models.closers = append(models.closers, cached.Close)
		embedder = cached
	}
	models.Embedder = embedder

	return models, nil
}
