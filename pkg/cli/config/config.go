package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/coachmem/pkg/service/heuristics"
	"github.com/secmon-lab/coachmem/pkg/usecase"
)

// PipelineConfig represents the tunable thresholds read from a TOML file.
// Omitted values keep the usecase defaults.
type PipelineConfig struct {
	Memory     MemorySection     `toml:"memory"`
	Extraction ExtractionSection `toml:"extraction"`
	Chat       ChatSection       `toml:"chat"`
	Heuristics HeuristicsSection `toml:"heuristics"`

	// CallTimeout is a Go duration string such as "30s"
	CallTimeout string `toml:"call_timeout"`
}

// MemorySection configures retrieval and retention
type MemorySection struct {
	RetrieveLimit       int     `toml:"retrieve_limit"`
	MinSimilarity       float64 `toml:"min_similarity"`
	RecentWindow        int     `toml:"recent_window"`
	RetentionDays       int     `toml:"retention_days"`
	RetentionImportance float64 `toml:"retention_importance"`
	AnalyticsDays       int     `toml:"analytics_days"`
}

// ExtractionSection configures task merging and goal linking
type ExtractionSection struct {
	DuplicateThreshold float64 `toml:"duplicate_threshold"`
	GoalMatchThreshold float64 `toml:"goal_match_threshold"`
}

// ChatSection configures the chat flow
type ChatSection struct {
	AutoTaskConfidence float64 `toml:"auto_task_confidence"`
	MemoryLimit        int     `toml:"memory_limit"`
	Temperature        float64 `toml:"temperature"`
	MaxTokens          int     `toml:"max_tokens"`
}

// HeuristicsSection points to an alternative keyword table
type HeuristicsSection struct {
	Table string `toml:"table"`
}

func checkThreshold(section, field string, v float64) error {
	if v < 0 || v > 1 {
		return goerr.Wrap(ErrInvalidThreshold, "threshold out of range",
			goerr.V(SectionKey, section), goerr.V(FieldKey, field), goerr.V(ValueKey, v))
	}
	return nil
}

func checkLimit(section, field string, v int) error {
	if v < 0 {
		return goerr.Wrap(ErrInvalidLimit, "negative limit",
			goerr.V(SectionKey, section), goerr.V(FieldKey, field), goerr.V(ValueKey, v))
	}
	return nil
}

// Validate checks value ranges. Zero means "use the default" and is accepted.
func (p *PipelineConfig) Validate() error {
	checks := []error{
		checkLimit("memory", "retrieve_limit", p.Memory.RetrieveLimit),
		checkThreshold("memory", "min_similarity", p.Memory.MinSimilarity),
		checkLimit("memory", "recent_window", p.Memory.RecentWindow),
		checkLimit("memory", "retention_days", p.Memory.RetentionDays),
		checkThreshold("memory", "retention_importance", p.Memory.RetentionImportance),
		checkLimit("memory", "analytics_days", p.Memory.AnalyticsDays),
		checkThreshold("extraction", "duplicate_threshold", p.Extraction.DuplicateThreshold),
		checkThreshold("extraction", "goal_match_threshold", p.Extraction.GoalMatchThreshold),
		checkThreshold("chat", "auto_task_confidence", p.Chat.AutoTaskConfidence),
		checkLimit("chat", "memory_limit", p.Chat.MemoryLimit),
		checkLimit("chat", "max_tokens", p.Chat.MaxTokens),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if p.Chat.Temperature < 0 || p.Chat.Temperature > 2 {
		return goerr.Wrap(ErrInvalidConfig, "temperature must be between 0 and 2",
			goerr.V(SectionKey, "chat"), goerr.V(FieldKey, "temperature"), goerr.V(ValueKey, p.Chat.Temperature))
	}

	if p.CallTimeout != "" {
		d, err := time.ParseDuration(p.CallTimeout)
		if err != nil || d <= 0 {
			return goerr.Wrap(ErrInvalidConfig, "invalid call_timeout",
				goerr.V(FieldKey, "call_timeout"), goerr.V(ValueKey, p.CallTimeout))
		}
	}

	return nil
}

// LoadPipeline reads the pipeline configuration from a TOML file. An empty
// path yields the defaults.
func LoadPipeline(path string) (*PipelineConfig, error) {
	if path == "" {
		return &PipelineConfig{}, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	return ParsePipeline(data, path)
}

// ParsePipeline decodes and validates TOML pipeline configuration
func ParsePipeline(data []byte, path string) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &cfg, nil
}

// ToUseCaseConfig converts the file values to the usecase configuration
func (p *PipelineConfig) ToUseCaseConfig() usecase.Config {
	cfg := usecase.Config{
		RetrieveLimit:       p.Memory.RetrieveLimit,
		MinSimilarity:       p.Memory.MinSimilarity,
		RecentWindow:        p.Memory.RecentWindow,
		RetentionDays:       p.Memory.RetentionDays,
		RetentionImportance: p.Memory.RetentionImportance,
		AnalyticsDays:       p.Memory.AnalyticsDays,
		DuplicateThreshold:  p.Extraction.DuplicateThreshold,
		GoalMatchThreshold:  p.Extraction.GoalMatchThreshold,
		AutoTaskConfidence:  p.Chat.AutoTaskConfidence,
		ChatMemoryLimit:     p.Chat.MemoryLimit,
		ChatTemperature:     p.Chat.Temperature,
		ChatMaxTokens:       p.Chat.MaxTokens,
	}
	if d, err := time.ParseDuration(p.CallTimeout); err == nil {
		cfg.CallTimeout = d
	}
	return cfg
}

// Analyzer builds the keyword analyzer, loading the table file when set
func (p *PipelineConfig) Analyzer() (*heuristics.Analyzer, error) {
	if p.Heuristics.Table == "" {
		return heuristics.New(), nil
	}

	table, err := heuristics.LoadTable(p.Heuristics.Table)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load heuristics table",
			goerr.V(SectionKey, "heuristics"), goerr.V(ConfigPathKey, p.Heuristics.Table))
	}
	return heuristics.New(heuristics.WithTable(table)), nil
}
