package usecase

import (
	"context"
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/service/heuristics"
	"github.com/secmon-lab/coachmem/pkg/service/llm"
)

// Config holds the tunable thresholds of the pipeline. Zero values are
// replaced by the defaults of DefaultConfig.
type Config struct {
	// CallTimeout bounds every completion, embedding and storage call
	CallTimeout time.Duration

	RetrieveLimit       int
	MinSimilarity       float64
	RecentWindow        int
	RetentionDays       int
	RetentionImportance float64
	AnalyticsDays       int

	DuplicateThreshold float64
	GoalMatchThreshold float64

	AutoTaskConfidence float64
	ChatMemoryLimit    int
	ChatTemperature    float64
	ChatMaxTokens      int

	Clock func() time.Time
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		CallTimeout:         30 * time.Second,
		RetrieveLimit:       5,
		MinSimilarity:       0.3,
		RecentWindow:        50,
		RetentionDays:       90,
		RetentionImportance: 0.7,
		AnalyticsDays:       30,
		DuplicateThreshold:  0.5,
		GoalMatchThreshold:  0.3,
		AutoTaskConfidence:  0.6,
		ChatMemoryLimit:     5,
		ChatTemperature:     0.7,
		ChatMaxTokens:       500,
		Clock:               time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	if c.RetrieveLimit <= 0 {
		c.RetrieveLimit = d.RetrieveLimit
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = d.MinSimilarity
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = d.RetentionDays
	}
	if c.RetentionImportance <= 0 {
		c.RetentionImportance = d.RetentionImportance
	}
	if c.AnalyticsDays <= 0 {
		c.AnalyticsDays = d.AnalyticsDays
	}
	if c.DuplicateThreshold <= 0 {
		c.DuplicateThreshold = d.DuplicateThreshold
	}
	if c.GoalMatchThreshold <= 0 {
		c.GoalMatchThreshold = d.GoalMatchThreshold
	}
	if c.AutoTaskConfidence <= 0 {
		c.AutoTaskConfidence = d.AutoTaskConfidence
	}
	if c.ChatMemoryLimit <= 0 {
		c.ChatMemoryLimit = d.ChatMemoryLimit
	}
	if c.ChatTemperature <= 0 {
		c.ChatTemperature = d.ChatTemperature
	}
	if c.ChatMaxTokens <= 0 {
		c.ChatMaxTokens = d.ChatMaxTokens
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	return c
}

// callContext derives the context of one collaborator call
func (c Config) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.CallTimeout)
}

type UseCases struct {
	repo      interfaces.Repository
	completer interfaces.Completer
	embedder  interfaces.Embedder
	archiver  interfaces.Archiver
	analyzer  *heuristics.Analyzer
	prompts   *model.PromptSet
	config    Config
	syncHooks bool

	Memory  *MemoryUseCase
	Profile *ProfileSynthesizer
	Task    *TaskUseCase
	Prompt  *PromptUseCase
	Chat    *ChatUseCase
}

type Option func(*UseCases)

// WithCompleter sets the model used for replies, summaries and the
// model extraction pass. Without it those steps degrade.
func WithCompleter(c interfaces.Completer) Option {
	return func(uc *UseCases) {
		uc.completer = c
	}
}

// WithEmbedder sets the embedding provider. Defaults to a HashEmbedder.
func WithEmbedder(e interfaces.Embedder) Option {
	return func(uc *UseCases) {
		uc.embedder = e
	}
}

// WithArchiver archives expiring records before retention cleanup
func WithArchiver(a interfaces.Archiver) Option {
	return func(uc *UseCases) {
		uc.archiver = a
	}
}

// WithAnalyzer replaces the default keyword analyzer
func WithAnalyzer(a *heuristics.Analyzer) Option {
	return func(uc *UseCases) {
		uc.analyzer = a
	}
}

// WithPromptSet replaces the embedded base prompts
func WithPromptSet(p *model.PromptSet) Option {
	return func(uc *UseCases) {
		uc.prompts = p
	}
}

func WithConfig(cfg Config) Option {
	return func(uc *UseCases) {
		uc.config = cfg
	}
}

// WithSyncHooks runs post-store hooks such as profile synthesis inline
// instead of in a background goroutine
func WithSyncHooks() Option {
	return func(uc *UseCases) {
		uc.syncHooks = true
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:   repo,
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.embedder == nil {
		uc.embedder = llm.NewHashEmbedder(llm.DefaultHashDimension)
	}
	if uc.analyzer == nil {
		uc.analyzer = heuristics.New()
	}
	if uc.prompts == nil {
		uc.prompts = DefaultPromptSet()
	}
	cfg := uc.config.withDefaults()

	uc.Memory = NewMemoryUseCase(repo, uc.embedder, uc.completer, uc.analyzer, cfg)
	if uc.archiver != nil {
		uc.Memory.SetArchiver(uc.archiver)
	}
	uc.Profile = NewProfileSynthesizer(repo, uc.analyzer, cfg, uc.syncHooks)
	uc.Memory.AddPostStoreHook(uc.Profile.Hook())
	uc.Task = NewTaskUseCase(repo, uc.completer, uc.analyzer, cfg)
	uc.Prompt = NewPromptUseCase(repo, uc.prompts, cfg)
	uc.Chat = NewChatUseCase(repo, uc.completer, uc.Memory, uc.Task, uc.Prompt, cfg)

	return uc
}
