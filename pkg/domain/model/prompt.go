package model

import (
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// PromptTemplate is one version of a base prompt
type PromptTemplate struct {
	Type      types.PromptType `json:"prompt_type"`
	Content   string           `json:"prompt_content"`
	Version   int              `json:"version"`
	UpdatedBy string           `json:"updated_by"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// PromptBackup keeps the previous content of a template before an update
type PromptBackup struct {
	Type       types.PromptType `json:"prompt_type"`
	OldPrompt  string           `json:"old_prompt"`
	NewPrompt  string           `json:"new_prompt"`
	OldVersion int              `json:"old_version"`
	UpdatedBy  string           `json:"updated_by"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// PromptUsage is logged every time an enhanced prompt is built
type PromptUsage struct {
	Type       types.PromptType `json:"prompt_type"`
	UserID     string           `json:"user_id"`
	Timestamp  time.Time        `json:"timestamp"`
	UsageCount int              `json:"usage_count"`
}

// PromptTypeUsage is the usage aggregate of one prompt type
type PromptTypeUsage struct {
	Type             types.PromptType `json:"prompt_type"`
	UsageCount       int              `json:"usage_count"`
	UniqueUsersCount int              `json:"unique_users_count"`
}

// PromptAnalytics aggregates prompt usage over a time window
type PromptAnalytics struct {
	Outcome
	PeriodDays int                `json:"period_days"`
	Prompts    []*PromptTypeUsage `json:"prompt_analytics"`
	TotalUsage int                `json:"total_usage"`
}

// PromptSet is the live, versioned set of base prompts
type PromptSet struct {
	templates map[types.PromptType]*PromptTemplate
}

// NewPromptSet builds a set from the given templates
func NewPromptSet(templates ...*PromptTemplate) *PromptSet {
	s := &PromptSet{templates: make(map[types.PromptType]*PromptTemplate, len(templates))}
	for _, t := range templates {
		s.Put(t)
	}
	return s
}

// Get returns the template of the given type, or nil
func (s *PromptSet) Get(promptType types.PromptType) *PromptTemplate {
	t, ok := s.templates[promptType]
	if !ok {
		return nil
	}
	copied := *t
	return &copied
}

// Put stores a copy of the template
func (s *PromptSet) Put(t *PromptTemplate) {
	copied := *t
	s.templates[t.Type] = &copied
}

// Clone returns an independent copy of the set
func (s *PromptSet) Clone() *PromptSet {
	c := &PromptSet{templates: make(map[types.PromptType]*PromptTemplate, len(s.templates))}
	for k, v := range s.templates {
		copied := *v
		c.templates[k] = &copied
	}
	return c
}
