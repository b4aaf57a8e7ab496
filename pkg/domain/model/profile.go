package model

import (
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// OnboardingProfile is what the user declared when joining
type OnboardingProfile struct {
	UserID       string `json:"user_id"`
	Objective    string `json:"objective"`
	Domain       string `json:"domain"`
	CurrentLevel string `json:"current_level"`
}

// Frequency is an item with its occurrence count, ranked most common first
type Frequency[T comparable] struct {
	Item  T   `json:"item"`
	Count int `json:"count"`
}

// CommunicationPatterns describes how the user likes to be answered
type CommunicationPatterns struct {
	PrefersDetailedResponses bool  `json:"prefers_detailed_responses"`
	MostActiveHours          []int `json:"most_active_hours"`
}

// ResponsePreferences holds mean response lengths after positive or
// negative feedback. Nil means no sample.
type ResponsePreferences struct {
	PreferredResponseLength *float64 `json:"preferred_response_length,omitempty"`
	DislikedResponseLength  *float64 `json:"disliked_response_length,omitempty"`
}

// ActivityPatterns describes when and how much the user interacts
type ActivityPatterns struct {
	MostActiveHours   []int `json:"most_active_hours"`
	TotalInteractions int   `json:"total_interactions"`
}

// BehaviorProfileDelta is the aggregated signal computed by synthesis.
// Applying it replaces the matching profile fields wholesale.
type BehaviorProfileDelta struct {
	FrequentTopics        []Frequency[types.Topic]   `json:"frequent_topics"`
	DominantEmotions      []Frequency[types.Emotion] `json:"dominant_emotions"`
	CommunicationPatterns CommunicationPatterns      `json:"communication_patterns"`
	ResponsePreferences   ResponsePreferences        `json:"response_preferences"`
	GoalEvolution         []string                   `json:"goal_evolution"`
	ActivityPatterns      ActivityPatterns           `json:"activity_patterns"`
	AnalyzedAt            time.Time                  `json:"analyzed_at"`
}

// BehaviorProfile is the per-user behavioral record
type BehaviorProfile struct {
	UserID                  string                     `json:"user_id"`
	MotivationType          string                     `json:"motivation_type,omitempty"`
	ProcrastinationTendency types.Tendency             `json:"procrastination_tendency,omitempty"`
	CommunicationPatterns   CommunicationPatterns      `json:"communication_patterns"`
	RecurringTopics         []Frequency[types.Topic]   `json:"recurring_topics"`
	DominantEmotions        []Frequency[types.Emotion] `json:"dominant_emotions"`
	GoalEvolution           []string                   `json:"goal_evolution"`
	ResponsePreferences     ResponsePreferences        `json:"response_preferences"`
	ActivityPatterns        ActivityPatterns           `json:"activity_patterns"`
	LastMemoryAnalysis      time.Time                  `json:"last_memory_analysis"`
	MemoryAnalysisCount     int64                      `json:"memory_analysis_count"`
}

// Apply replaces the synthesized fields with the delta and bumps the
// analysis counter. Declared fields (motivation, procrastination) are kept.
func (p *BehaviorProfile) Apply(delta *BehaviorProfileDelta) {
	p.CommunicationPatterns = delta.CommunicationPatterns
	p.RecurringTopics = delta.FrequentTopics
	p.DominantEmotions = delta.DominantEmotions
	p.GoalEvolution = delta.GoalEvolution
	p.ResponsePreferences = delta.ResponsePreferences
	p.ActivityPatterns = delta.ActivityPatterns
	p.LastMemoryAnalysis = delta.AnalyzedAt
	p.MemoryAnalysisCount++
}

// SynthesisResult is the outcome of one profile synthesis run
type SynthesisResult struct {
	Outcome
	Updated          bool                  `json:"updated"`
	MemoriesAnalyzed int                   `json:"memories_analyzed"`
	Delta            *BehaviorProfileDelta `json:"analysis_summary,omitempty"`
}

// Clone returns a deep copy of the profile
func (p *BehaviorProfile) Clone() *BehaviorProfile {
	copied := *p
	copied.CommunicationPatterns.MostActiveHours = cloneSlice(p.CommunicationPatterns.MostActiveHours)
	copied.RecurringTopics = cloneSlice(p.RecurringTopics)
	copied.DominantEmotions = cloneSlice(p.DominantEmotions)
	copied.GoalEvolution = cloneSlice(p.GoalEvolution)
	copied.ActivityPatterns.MostActiveHours = cloneSlice(p.ActivityPatterns.MostActiveHours)
	copied.ResponsePreferences = p.ResponsePreferences.clone()
	return &copied
}

func (r ResponsePreferences) clone() ResponsePreferences {
	var c ResponsePreferences
	if r.PreferredResponseLength != nil {
		v := *r.PreferredResponseLength
		c.PreferredResponseLength = &v
	}
	if r.DislikedResponseLength != nil {
		v := *r.DislikedResponseLength
		c.DislikedResponseLength = &v
	}
	return c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
